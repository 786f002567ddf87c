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


package ai

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Backend names an adapter variant.
type Backend string

const (
	// BackendLocal runs deterministic in-process models.
	BackendLocal Backend = "local"
	// BackendOpenAI calls OpenAI-compatible services.
	BackendOpenAI Backend = "openai"
	// BackendNone disables a capability. Only valid for transcription.
	BackendNone Backend = "none"
)

// Config holds configuration for AI service providers.
type Config struct {
	// Backend selection per capability.
	TranscriptionBackend Backend
	ExtractionBackend    Backend
	SummarizationBackend Backend
	EmbeddingBackend     Backend
	GenerationBackend    Backend

	// APIKey authenticates against remote services.
	// Local OpenAI-compatible servers accept any value.
	APIKey string

	// TranscriptionHost is the base URL for the speech-to-text API.
	TranscriptionHost string

	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// ChatHost is the base URL for the chat completion API used for
	// extraction, summarization, narrative generation and term explanation.
	ChatHost string

	// TranscriptionModel is the speech-to-text model identifier.
	// Example: "whisper-1"
	TranscriptionModel string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "all-minilm", "text-embedding-3-small"
	EmbeddingModel string

	// ChatModel is the model identifier for chat completions.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	ChatModel string

	// EmbeddingDimensions is the vector length every embedding must have.
	// Default: 384
	EmbeddingDimensions int

	// MinConfidence drops extracted entities scored below it.
	// Default: 0.7
	MinConfidence float64

	// MaxAudioDuration rejects longer recordings. Zero disables the check.
	// Default: 42 minutes
	MaxAudioDuration time.Duration

	// RequestsPerSecond throttles remote calls per service. Zero disables throttling.
	RequestsPerSecond float64
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBackend selects the same backend for every capability except transcription.
func WithBackend(b Backend) ConfigOption {
	return func(c *Config) {
		c.ExtractionBackend = b
		c.SummarizationBackend = b
		c.EmbeddingBackend = b
		c.GenerationBackend = b
	}
}

// WithTranscriptionBackend selects the transcription backend.
func WithTranscriptionBackend(b Backend) ConfigOption {
	return func(c *Config) {
		c.TranscriptionBackend = b
	}
}

// WithExtractionBackend selects the entity extraction backend.
func WithExtractionBackend(b Backend) ConfigOption {
	return func(c *Config) {
		c.ExtractionBackend = b
	}
}

// WithSummarizationBackend selects the summarization backend.
func WithSummarizationBackend(b Backend) ConfigOption {
	return func(c *Config) {
		c.SummarizationBackend = b
	}
}

// WithEmbeddingBackend selects the embedding backend.
func WithEmbeddingBackend(b Backend) ConfigOption {
	return func(c *Config) {
		c.EmbeddingBackend = b
	}
}

// WithGenerationBackend selects the narrative and term explanation backend.
func WithGenerationBackend(b Backend) ConfigOption {
	return func(c *Config) {
		c.GenerationBackend = b
	}
}

// WithHost sets every service host to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.TranscriptionHost = host
		c.EmbeddingHost = host
		c.ChatHost = host
	}
}

// WithTranscriptionHost sets the speech-to-text host URL.
func WithTranscriptionHost(host string) ConfigOption {
	return func(c *Config) {
		c.TranscriptionHost = host
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithChatHost sets the chat completion host URL.
func WithChatHost(host string) ConfigOption {
	return func(c *Config) {
		c.ChatHost = host
	}
}

// WithAPIKey sets the API key for remote services.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithTranscriptionModel sets the speech-to-text model identifier.
func WithTranscriptionModel(model string) ConfigOption {
	return func(c *Config) {
		c.TranscriptionModel = model
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithChatModel sets the chat model identifier.
func WithChatModel(model string) ConfigOption {
	return func(c *Config) {
		c.ChatModel = model
	}
}

// WithEmbeddingDimensions sets the embedding vector length.
func WithEmbeddingDimensions(dims int) ConfigOption {
	return func(c *Config) {
		c.EmbeddingDimensions = dims
	}
}

// WithMinConfidence sets the entity confidence threshold.
func WithMinConfidence(min float64) ConfigOption {
	return func(c *Config) {
		c.MinConfidence = min
	}
}

// WithMaxAudioDuration sets the longest accepted recording.
func WithMaxAudioDuration(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxAudioDuration = d
	}
}

// WithRequestsPerSecond throttles remote calls.
func WithRequestsPerSecond(rps float64) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
	}
}

// DefaultConfig returns a Config that runs entirely in process.
// Transcription is disabled until a speech-to-text backend is configured.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		TranscriptionBackend: BackendNone,
		ExtractionBackend:    BackendLocal,
		SummarizationBackend: BackendLocal,
		EmbeddingBackend:     BackendLocal,
		GenerationBackend:    BackendLocal,
		TranscriptionHost:    "https://api.openai.com/v1",
		EmbeddingHost:        defaultHost,
		ChatHost:             defaultHost,
		TranscriptionModel:   "whisper-1",
		EmbeddingModel:       "all-minilm",
		ChatModel:            "qwen2.5:3b",
		EmbeddingDimensions:  384,
		MinConfidence:        0.7,
		MaxAudioDuration:     42 * time.Minute,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithBackend(BackendOpenAI),
//	    WithHost("http://localhost:11434/v1"),
//	    WithEmbeddingModel("nomic-embed-text"),
//	    WithEmbeddingDimensions(768),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to hosts if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	c.TranscriptionHost = normalizeHost(c.TranscriptionHost)
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost)
	c.ChatHost = normalizeHost(c.ChatHost)
	c.TranscriptionBackend = Backend(strings.ToLower(string(c.TranscriptionBackend)))
	c.ExtractionBackend = Backend(strings.ToLower(string(c.ExtractionBackend)))
	c.SummarizationBackend = Backend(strings.ToLower(string(c.SummarizationBackend)))
	c.EmbeddingBackend = Backend(strings.ToLower(string(c.EmbeddingBackend)))
	c.GenerationBackend = Backend(strings.ToLower(string(c.GenerationBackend)))
}

func normalizeHost(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// UsesOpenAI reports whether any capability calls a remote service.
func (c *Config) UsesOpenAI() bool {
	return c.TranscriptionBackend == BackendOpenAI ||
		c.ExtractionBackend == BackendOpenAI ||
		c.SummarizationBackend == BackendOpenAI ||
		c.EmbeddingBackend == BackendOpenAI ||
		c.GenerationBackend == BackendOpenAI
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.TranscriptionBackend {
	case BackendOpenAI, BackendNone:
	default:
		return fmt.Errorf("ai config: unknown transcription backend %q", c.TranscriptionBackend)
	}
	for name, b := range map[string]Backend{
		"extraction":    c.ExtractionBackend,
		"summarization": c.SummarizationBackend,
		"embedding":     c.EmbeddingBackend,
		"generation":    c.GenerationBackend,
	} {
		if b != BackendLocal && b != BackendOpenAI {
			return fmt.Errorf("ai config: unknown %s backend %q", name, b)
		}
	}

	if c.TranscriptionBackend == BackendOpenAI {
		if c.TranscriptionHost == "" {
			return errors.New("ai config: TranscriptionHost is required")
		}
		if c.TranscriptionModel == "" {
			return errors.New("ai config: TranscriptionModel is required")
		}
	}
	if c.EmbeddingBackend == BackendOpenAI {
		if c.EmbeddingHost == "" {
			return errors.New("ai config: EmbeddingHost is required")
		}
		if c.EmbeddingModel == "" {
			return errors.New("ai config: EmbeddingModel is required")
		}
	}
	if c.ExtractionBackend == BackendOpenAI || c.SummarizationBackend == BackendOpenAI || c.GenerationBackend == BackendOpenAI {
		if c.ChatHost == "" {
			return errors.New("ai config: ChatHost is required")
		}
		if c.ChatModel == "" {
			return errors.New("ai config: ChatModel is required")
		}
	}

	if c.EmbeddingDimensions <= 0 {
		return errors.New("ai config: EmbeddingDimensions must be positive")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return errors.New("ai config: MinConfidence must be between 0 and 1")
	}
	if c.MaxAudioDuration < 0 {
		return errors.New("ai config: MaxAudioDuration cannot be negative")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("ai config: RequestsPerSecond cannot be negative")
	}
	return nil
}
