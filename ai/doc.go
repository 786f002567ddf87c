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


// Package ai provides abstractions for the model capabilities medscribe uses.
//
// Each capability is an interface, and the rest of the system depends only
// on these interfaces:
//
//   - Transcriber: audio to transcript
//   - EntityExtractor: transcript to medical entities with spans
//   - Summarizer: transcript to a bounded summary
//   - Embedder: text to fixed-dimension vectors
//   - NarrativeGenerator: entities, summary and context to report prose
//   - TermExplainer: medical terms to plain-language explanations
//   - AIProvider: aggregates the above with a shared lifecycle
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible services (chat, embeddings, Whisper)
//   - ai/local: deterministic in-process models (lexicon, extractive
//     summarizer, feature hashing embedder, report template)
//   - ai/mock: test doubles
//   - ai/backend: builds an AIProvider, choosing the variant of each
//     capability from Config
//
// # Constructor Return Type Pattern
//
// Public constructors in the implementation packages return interface types
// (openai.NewEmbedder returns ai.Embedder). Mock constructors return concrete
// types so tests can inject behaviour and inspect call counts.
//
// # Usage Example
//
//	cfg := ai.NewConfig(
//	    ai.WithBackend(ai.BackendOpenAI),
//	    ai.WithHost("http://localhost:11434/v1"),
//	)
//	provider, err := backend.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	entities, err := provider.EntityExtractor().ExtractEntities(ctx, transcript)
package ai
