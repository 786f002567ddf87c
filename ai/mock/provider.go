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

package mock

import "github.com/poiesic/medscribe/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates a mock for every capability.
type MockProvider struct {
	transcriber *MockTranscriber
	extractor   *MockEntityExtractor
	summarizer  *MockSummarizer
	embedder    *MockEmbedder
	generator   *MockNarrativeGenerator
	explainer   *MockTermExplainer

	closed bool
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use the GetMock accessors to reach concrete types for test assertions.
func NewMockProvider() ai.AIProvider {
	return newMockProvider()
}

func newMockProvider() *MockProvider {
	return &MockProvider{
		transcriber: NewMockTranscriber(),
		extractor:   NewMockEntityExtractor(),
		summarizer:  NewMockSummarizer(),
		embedder:    NewMockEmbedder(),
		generator:   NewMockNarrativeGenerator(),
		explainer:   NewMockTermExplainer(),
	}
}

// NewMockProviderWithEmbedder creates a mock provider using the given embedder.
// This allows tests to pick the embedding dimension.
func NewMockProviderWithEmbedder(embedder *MockEmbedder) ai.AIProvider {
	p := newMockProvider()
	p.embedder = embedder
	return p
}

func (p *MockProvider) Transcriber() ai.Transcriber               { return p.transcriber }
func (p *MockProvider) EntityExtractor() ai.EntityExtractor       { return p.extractor }
func (p *MockProvider) Summarizer() ai.Summarizer                 { return p.summarizer }
func (p *MockProvider) Embedder() ai.Embedder                     { return p.embedder }
func (p *MockProvider) NarrativeGenerator() ai.NarrativeGenerator { return p.generator }
func (p *MockProvider) TermExplainer() ai.TermExplainer           { return p.explainer }

// Close marks the provider closed.
func (p *MockProvider) Close() error {
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *MockProvider) Closed() bool {
	return p.closed
}

// GetMockTranscriber returns the underlying mock transcriber for test assertions.
func (p *MockProvider) GetMockTranscriber() *MockTranscriber {
	return p.transcriber
}

// GetMockExtractor returns the underlying mock extractor for test assertions.
// This allows tests to check call counts and inject custom behavior.
func (p *MockProvider) GetMockExtractor() *MockEntityExtractor {
	return p.extractor
}

// GetMockSummarizer returns the underlying mock summarizer for test assertions.
func (p *MockProvider) GetMockSummarizer() *MockSummarizer {
	return p.summarizer
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
// This allows tests to check call counts and inject custom behavior.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockGenerator returns the underlying mock narrative generator for test assertions.
func (p *MockProvider) GetMockGenerator() *MockNarrativeGenerator {
	return p.generator
}

// GetMockExplainer returns the underlying mock term explainer for test assertions.
func (p *MockProvider) GetMockExplainer() *MockTermExplainer {
	return p.explainer
}
