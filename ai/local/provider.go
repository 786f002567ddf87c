package local

import "github.com/poiesic/medscribe/ai"

// Provider bundles the in-process models. It has no transcriber.
type Provider struct {
	extractor  *LexiconExtractor
	summarizer *ExtractiveSummarizer
	embedder   *HashEmbedder
	generator  *TemplateGenerator
	explainer  *GlossaryExplainer
}

// NewProvider creates the local models from configuration.
func NewProvider(config *ai.Config) *Provider {
	if config == nil {
		config = ai.DefaultConfig()
	}
	return &Provider{
		extractor:  NewLexiconExtractor(config.MinConfidence),
		summarizer: NewExtractiveSummarizer(),
		embedder:   NewHashEmbedder(config.EmbeddingDimensions),
		generator:  NewTemplateGenerator(),
		explainer:  NewGlossaryExplainer(),
	}
}

func (p *Provider) EntityExtractor() ai.EntityExtractor {
	return p.extractor
}

func (p *Provider) Summarizer() ai.Summarizer {
	return p.summarizer
}

func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *Provider) NarrativeGenerator() ai.NarrativeGenerator {
	return p.generator
}

func (p *Provider) TermExplainer() ai.TermExplainer {
	return p.explainer
}
