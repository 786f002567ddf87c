// Package backend assembles an ai.AIProvider from configuration, choosing
// the local or OpenAI-compatible implementation of each capability.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/medscribe/ai"
	"github.com/poiesic/medscribe/ai/local"
	"github.com/poiesic/medscribe/ai/openai"
	"github.com/poiesic/medscribe/core"
)

type provider struct {
	transcriber ai.Transcriber
	extractor   ai.EntityExtractor
	summarizer  ai.Summarizer
	embedder    ai.Embedder
	generator   ai.NarrativeGenerator
	explainer   ai.TermExplainer
	remote      ai.AIProvider
}

// New builds a provider from config. The OpenAI-compatible clients are only
// created when at least one capability selects them.
func New(config *ai.Config) (ai.AIProvider, error) {
	if config == nil {
		config = ai.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &provider{}
	if config.UsesOpenAI() {
		remote, err := openai.NewProvider(config)
		if err != nil {
			return nil, fmt.Errorf("creating openai provider: %w", err)
		}
		p.remote = remote
	}
	in := local.NewProvider(config)

	if config.TranscriptionBackend == ai.BackendOpenAI {
		p.transcriber = p.remote.Transcriber()
	} else {
		p.transcriber = disabledTranscriber{}
	}
	p.extractor = pick(config.ExtractionBackend, p.remote, ai.AIProvider.EntityExtractor, in.EntityExtractor())
	p.summarizer = pick(config.SummarizationBackend, p.remote, ai.AIProvider.Summarizer, in.Summarizer())
	p.embedder = pick(config.EmbeddingBackend, p.remote, ai.AIProvider.Embedder, in.Embedder())
	p.generator = pick(config.GenerationBackend, p.remote, ai.AIProvider.NarrativeGenerator, in.NarrativeGenerator())
	p.explainer = pick(config.GenerationBackend, p.remote, ai.AIProvider.TermExplainer, in.TermExplainer())

	slog.Default().With("component", "ai-backend").Info("ai provider ready",
		"transcription", config.TranscriptionBackend,
		"extraction", config.ExtractionBackend,
		"summarization", config.SummarizationBackend,
		"embedding", config.EmbeddingBackend,
		"generation", config.GenerationBackend,
		"dimensions", config.EmbeddingDimensions)
	return p, nil
}

func pick[T any](b ai.Backend, remote ai.AIProvider, get func(ai.AIProvider) T, fallback T) T {
	if b == ai.BackendOpenAI {
		return get(remote)
	}
	return fallback
}

func (p *provider) Transcriber() ai.Transcriber               { return p.transcriber }
func (p *provider) EntityExtractor() ai.EntityExtractor       { return p.extractor }
func (p *provider) Summarizer() ai.Summarizer                 { return p.summarizer }
func (p *provider) Embedder() ai.Embedder                     { return p.embedder }
func (p *provider) NarrativeGenerator() ai.NarrativeGenerator { return p.generator }
func (p *provider) TermExplainer() ai.TermExplainer           { return p.explainer }

func (p *provider) Close() error {
	if p.remote != nil {
		return p.remote.Close()
	}
	return nil
}

// disabledTranscriber rejects all audio. It stands in when no
// speech-to-text backend is configured.
type disabledTranscriber struct{}

func (disabledTranscriber) Transcribe(ctx context.Context, audio core.Audio) (*core.Transcript, error) {
	return nil, fmt.Errorf("%w: transcription backend disabled", core.ErrUnsupportedMedia)
}
