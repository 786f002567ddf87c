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

// Package openai provides AI service implementations using OpenAI-compatible APIs.
//
// Chat and embedding capabilities use the langchaingo library, so they work
// against OpenAI or any OpenAI-compatible service (Ollama, LocalAI, vLLM).
// Transcription uses the Whisper endpoint through go-openai.
//
// Failures are mapped onto the core error taxonomy: unreachable services,
// rate limiting and 5xx responses wrap core.ErrCapabilityUnavailable so
// callers can retry them.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithBackend(ai.BackendOpenAI),
//	    ai.WithTranscriptionBackend(ai.BackendOpenAI),
//	    ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	)
//
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	entities, err := provider.EntityExtractor().ExtractEntities(ctx, "Patient reports a persistent cough")
package openai
