// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"log/slog"

	"github.com/poiesic/medscribe/ai"
)

// Provider implements ai.AIProvider using OpenAI-compatible services.
// The chat-backed capabilities share one client and rate limiter.
type Provider struct {
	config      *ai.Config
	transcriber *Transcriber
	embedder    *Embedder
	extractor   *EntityExtractor
	summarizer  *Summarizer
	generator   *NarrativeGenerator
	explainer   *TermExplainer
	logger      *slog.Logger
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use.
//
// Returns ai.AIProvider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	chat, err := newChatClient(config, newLimiter(config.RequestsPerSecond))
	if err != nil {
		return nil, err
	}

	// Create embedder (using internal constructor for concrete type)
	embedder, err := newEmbedder(config, newLimiter(config.RequestsPerSecond))
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:      config,
		transcriber: newTranscriber(config, newLimiter(config.RequestsPerSecond)),
		embedder:    embedder,
		extractor:   newEntityExtractor(chat, config),
		summarizer:  newSummarizer(chat),
		generator:   newNarrativeGenerator(chat),
		explainer:   newTermExplainer(chat),
		logger:      slog.Default().With("component", "openai-provider"),
	}, nil
}

// Transcriber returns the speech-to-text service.
func (p *Provider) Transcriber() ai.Transcriber {
	return p.transcriber
}

// EntityExtractor returns the entity extraction service.
func (p *Provider) EntityExtractor() ai.EntityExtractor {
	return p.extractor
}

// Summarizer returns the summarization service.
func (p *Provider) Summarizer() ai.Summarizer {
	return p.summarizer
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// NarrativeGenerator returns the report narrative service.
func (p *Provider) NarrativeGenerator() ai.NarrativeGenerator {
	return p.generator
}

// TermExplainer returns the term explanation service.
func (p *Provider) TermExplainer() ai.TermExplainer {
	return p.explainer
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
