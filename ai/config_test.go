package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, BackendNone, cfg.TranscriptionBackend)
	assert.Equal(t, BackendLocal, cfg.ExtractionBackend)
	assert.Equal(t, BackendLocal, cfg.EmbeddingBackend)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "whisper-1", cfg.TranscriptionModel)
	assert.Equal(t, 384, cfg.EmbeddingDimensions)
	assert.Equal(t, 0.7, cfg.MinConfidence)
	assert.Equal(t, 42*time.Minute, cfg.MaxAudioDuration)
	assert.False(t, cfg.UsesOpenAI())
	require.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.ChatHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.TranscriptionHost)
	})

	t.Run("with backend", func(t *testing.T) {
		cfg := NewConfig(WithBackend(BackendOpenAI))

		assert.Equal(t, BackendOpenAI, cfg.ExtractionBackend)
		assert.Equal(t, BackendOpenAI, cfg.SummarizationBackend)
		assert.Equal(t, BackendOpenAI, cfg.EmbeddingBackend)
		assert.Equal(t, BackendOpenAI, cfg.GenerationBackend)
		assert.Equal(t, BackendNone, cfg.TranscriptionBackend, "transcription is selected separately")
		assert.True(t, cfg.UsesOpenAI())
	})

	t.Run("with per-capability backends", func(t *testing.T) {
		cfg := NewConfig(
			WithTranscriptionBackend(BackendOpenAI),
			WithGenerationBackend(BackendOpenAI),
		)

		assert.Equal(t, BackendOpenAI, cfg.TranscriptionBackend)
		assert.Equal(t, BackendOpenAI, cfg.GenerationBackend)
		assert.Equal(t, BackendLocal, cfg.EmbeddingBackend)
	})

	t.Run("with custom values", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingModel("text-embedding-3-small"),
			WithChatModel("gpt-4o-mini"),
			WithEmbeddingDimensions(1536),
			WithMinConfidence(0.5),
			WithRequestsPerSecond(2),
			WithAPIKey("sk-test"),
		)

		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
		assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
		assert.Equal(t, 1536, cfg.EmbeddingDimensions)
		assert.Equal(t, 0.5, cfg.MinConfidence)
		assert.Equal(t, 2.0, cfg.RequestsPerSecond)
		assert.Equal(t, "sk-test", cfg.APIKey)
	})
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		host string
		want string
	}{
		{"already has /v1", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"missing /v1", "http://localhost:11434", "http://localhost:11434/v1"},
		{"trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{EmbeddingHost: tt.host, ChatHost: tt.host}
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.EmbeddingHost)
			assert.Equal(t, tt.want, cfg.ChatHost)
		})
	}

	t.Run("backend names are lowercased", func(t *testing.T) {
		cfg := &Config{EmbeddingBackend: "OpenAI"}
		cfg.Normalize()
		assert.Equal(t, BackendOpenAI, cfg.EmbeddingBackend)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []ConfigOption
		wantErr string
	}{
		{
			name: "valid openai config",
			opts: []ConfigOption{WithBackend(BackendOpenAI), WithTranscriptionBackend(BackendOpenAI)},
		},
		{
			name:    "unknown backend",
			opts:    []ConfigOption{WithEmbeddingBackend("faiss")},
			wantErr: "unknown embedding backend",
		},
		{
			name:    "none is transcription only",
			opts:    []ConfigOption{WithExtractionBackend(BackendNone)},
			wantErr: "unknown extraction backend",
		},
		{
			name:    "local transcription does not exist",
			opts:    []ConfigOption{WithTranscriptionBackend(BackendLocal)},
			wantErr: "unknown transcription backend",
		},
		{
			name:    "openai embedding needs model",
			opts:    []ConfigOption{WithEmbeddingBackend(BackendOpenAI), WithEmbeddingModel("")},
			wantErr: "EmbeddingModel is required",
		},
		{
			name:    "openai chat needs host",
			opts:    []ConfigOption{WithSummarizationBackend(BackendOpenAI), WithChatHost("")},
			wantErr: "ChatHost is required",
		},
		{
			name:    "local backends ignore missing hosts",
			opts:    []ConfigOption{WithHost("")},
			wantErr: "",
		},
		{
			name:    "zero dimensions",
			opts:    []ConfigOption{WithEmbeddingDimensions(0)},
			wantErr: "EmbeddingDimensions must be positive",
		},
		{
			name:    "confidence out of range",
			opts:    []ConfigOption{WithMinConfidence(1.5)},
			wantErr: "MinConfidence must be between 0 and 1",
		},
		{
			name:    "negative duration",
			opts:    []ConfigOption{WithMaxAudioDuration(-time.Second)},
			wantErr: "MaxAudioDuration cannot be negative",
		},
		{
			name:    "negative rate",
			opts:    []ConfigOption{WithRequestsPerSecond(-1)},
			wantErr: "RequestsPerSecond cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConfig(tt.opts...).Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
