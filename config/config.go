// Package config loads medscribe settings from a YAML file and the
// environment.
//
// Values are applied in order: built-in defaults, the YAML file, then
// environment variables. Command line flags are applied by the caller on
// top of the result.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/medscribe"
	"github.com/poiesic/medscribe/ai"
	"github.com/poiesic/medscribe/knowledge"
	"github.com/poiesic/medscribe/pipeline"
	"github.com/poiesic/medscribe/storage/badger"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MEDSCRIBE_"

// DefaultMaxUploadBytes caps audio uploads at 100 MiB.
const DefaultMaxUploadBytes = 100 << 20

// Config models medscribe.yaml.
type Config struct {
	DataDir    string          `yaml:"data_dir"` // Empty keeps everything in memory
	ReportTTL  time.Duration   `yaml:"report_ttl"`
	GCInterval time.Duration   `yaml:"gc_interval"` // Zero disables value log GC
	LogLevel   string          `yaml:"log_level"`
	AI         AIConfig        `yaml:"ai"`
	Pipeline   PipelineConfig  `yaml:"pipeline"`
	Knowledge  KnowledgeConfig `yaml:"knowledge"`
	Server     ServerConfig    `yaml:"server"`
}

// AIConfig selects and configures the model backends. Empty fields keep
// the ai.DefaultConfig() value.
type AIConfig struct {
	Backend              string        `yaml:"backend"` // Every capability except transcription
	TranscriptionBackend string        `yaml:"transcription_backend"`
	ExtractionBackend    string        `yaml:"extraction_backend"`
	SummarizationBackend string        `yaml:"summarization_backend"`
	EmbeddingBackend     string        `yaml:"embedding_backend"`
	GenerationBackend    string        `yaml:"generation_backend"`
	Host                 string        `yaml:"host"`
	TranscriptionHost    string        `yaml:"transcription_host"`
	EmbeddingHost        string        `yaml:"embedding_host"`
	ChatHost             string        `yaml:"chat_host"`
	APIKey               string        `yaml:"api_key"`
	TranscriptionModel   string        `yaml:"transcription_model"`
	EmbeddingModel       string        `yaml:"embedding_model"`
	ChatModel            string        `yaml:"chat_model"`
	EmbeddingDimensions  int           `yaml:"embedding_dimensions"`
	MinConfidence        *float64      `yaml:"min_confidence"`
	MaxAudioDuration     time.Duration `yaml:"max_audio_duration"`
	RequestsPerSecond    float64       `yaml:"requests_per_second"`
}

// PipelineConfig tunes report runs.
type PipelineConfig struct {
	TopK             int           `yaml:"top_k"`
	SummaryMaxLength int           `yaml:"summary_max_length"`
	SummaryMinLength int           `yaml:"summary_min_length"`
	MaxAttempts      int           `yaml:"max_attempts"`
	BaseDelay        time.Duration `yaml:"base_delay"`
	MaxDelay         time.Duration `yaml:"max_delay"`
	AttemptTimeout   time.Duration `yaml:"attempt_timeout"`
	IndexTranscripts bool          `yaml:"index_transcripts"`
	Workers          int           `yaml:"workers"`
}

// KnowledgeConfig tunes the knowledge base.
type KnowledgeConfig struct {
	ChunkSize         int `yaml:"chunk_size"`
	ChunkOverlap      int `yaml:"chunk_overlap"`
	ParallelThreshold int `yaml:"parallel_threshold"`
	Shards            int `yaml:"shards"`
}

// ServerConfig configures the HTTP boundary.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	BaseURL        string `yaml:"base_url"` // Prefix for report links; empty means relative links
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// Default returns the built-in configuration.
func Default() *Config {
	retry := pipeline.DefaultRetryPolicy()
	return &Config{
		LogLevel:   "info",
		GCInterval: badger.DefaultGCInterval,
		Pipeline: PipelineConfig{
			TopK:             pipeline.DefaultTopK,
			SummaryMaxLength: pipeline.DefaultSummaryMaxLength,
			SummaryMinLength: pipeline.DefaultSummaryMinLength,
			MaxAttempts:      retry.MaxAttempts,
			BaseDelay:        retry.BaseDelay,
			MaxDelay:         retry.MaxDelay,
			AttemptTimeout:   retry.AttemptTimeout,
		},
		Knowledge: KnowledgeConfig{
			ChunkSize:         knowledge.DefaultChunkSize,
			ChunkOverlap:      knowledge.DefaultChunkOverlap,
			ParallelThreshold: knowledge.DefaultParallelThreshold,
		},
		Server: ServerConfig{
			Addr:           ":8000",
			MaxUploadBytes: DefaultMaxUploadBytes,
		},
	}
}

// Load reads the YAML file at path, if any, over the defaults, then
// applies environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides fields from MEDSCRIBE_* variables. OPENAI_API_KEY is
// honored when MEDSCRIBE_API_KEY is unset.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	var errs []error
	num := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	str("DATA_DIR", &c.DataDir)
	dur("REPORT_TTL", &c.ReportTTL)
	str("LOG_LEVEL", &c.LogLevel)
	str("ADDR", &c.Server.Addr)
	str("BASE_URL", &c.Server.BaseURL)

	if key, ok := lookup("OPENAI_API_KEY"); ok {
		c.AI.APIKey = key
	}
	str("API_KEY", &c.AI.APIKey)
	str("AI_BACKEND", &c.AI.Backend)
	str("TRANSCRIPTION_BACKEND", &c.AI.TranscriptionBackend)
	str("AI_HOST", &c.AI.Host)
	str("TRANSCRIPTION_MODEL", &c.AI.TranscriptionModel)
	str("EMBEDDING_MODEL", &c.AI.EmbeddingModel)
	str("CHAT_MODEL", &c.AI.ChatModel)
	num("EMBEDDING_DIMENSIONS", &c.AI.EmbeddingDimensions)

	num("TOP_K", &c.Pipeline.TopK)
	num("MAX_ATTEMPTS", &c.Pipeline.MaxAttempts)
	dur("ATTEMPT_TIMEOUT", &c.Pipeline.AttemptTimeout)
	if v, ok := lookup(EnvPrefix + "INDEX_TRANSCRIPTS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sINDEX_TRANSCRIPTS: %w", EnvPrefix, err))
		} else {
			c.Pipeline.IndexTranscripts = b
		}
	}
	return errors.Join(errs...)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.ReportTTL < 0 {
		return errors.New("report_ttl cannot be negative")
	}
	if c.GCInterval < 0 {
		return errors.New("gc_interval cannot be negative")
	}
	if err := c.AIConfig().Validate(); err != nil {
		return err
	}
	if err := c.RetryPolicy().Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := ai.ValidateSummaryBounds(c.Pipeline.SummaryMaxLength, c.Pipeline.SummaryMinLength); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if c.Pipeline.TopK < 0 {
		return errors.New("pipeline: top_k cannot be negative")
	}
	k := c.Knowledge
	if k.ChunkSize < 1 || k.ChunkOverlap < 0 || k.ChunkOverlap >= k.ChunkSize {
		return fmt.Errorf("knowledge: chunk_overlap must be in [0, chunk_size), got %d and %d", k.ChunkOverlap, k.ChunkSize)
	}
	if k.ParallelThreshold < 1 || k.Shards < 0 {
		return errors.New("knowledge: parallel_threshold must be positive and shards non-negative")
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server: addr is required")
	}
	if c.Server.MaxUploadBytes < 1 {
		return errors.New("server: max_upload_bytes must be positive")
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// AIConfig builds the model configuration.
func (c *Config) AIConfig() *ai.Config {
	a := c.AI
	var opts []ai.ConfigOption
	if a.Backend != "" {
		opts = append(opts, ai.WithBackend(ai.Backend(a.Backend)))
	}
	if a.Host != "" {
		opts = append(opts, ai.WithHost(a.Host))
	}
	if a.MinConfidence != nil {
		opts = append(opts, ai.WithMinConfidence(*a.MinConfidence))
	}
	for _, o := range []struct {
		value string
		opt   func(string) ai.ConfigOption
	}{
		{a.TranscriptionBackend, func(v string) ai.ConfigOption { return ai.WithTranscriptionBackend(ai.Backend(v)) }},
		{a.ExtractionBackend, func(v string) ai.ConfigOption { return ai.WithExtractionBackend(ai.Backend(v)) }},
		{a.SummarizationBackend, func(v string) ai.ConfigOption { return ai.WithSummarizationBackend(ai.Backend(v)) }},
		{a.EmbeddingBackend, func(v string) ai.ConfigOption { return ai.WithEmbeddingBackend(ai.Backend(v)) }},
		{a.GenerationBackend, func(v string) ai.ConfigOption { return ai.WithGenerationBackend(ai.Backend(v)) }},
		{a.TranscriptionHost, ai.WithTranscriptionHost},
		{a.EmbeddingHost, ai.WithEmbeddingHost},
		{a.ChatHost, ai.WithChatHost},
		{a.APIKey, ai.WithAPIKey},
		{a.TranscriptionModel, ai.WithTranscriptionModel},
		{a.EmbeddingModel, ai.WithEmbeddingModel},
		{a.ChatModel, ai.WithChatModel},
	} {
		if o.value != "" {
			opts = append(opts, o.opt(o.value))
		}
	}
	if a.EmbeddingDimensions != 0 {
		opts = append(opts, ai.WithEmbeddingDimensions(a.EmbeddingDimensions))
	}
	if a.MaxAudioDuration != 0 {
		opts = append(opts, ai.WithMaxAudioDuration(a.MaxAudioDuration))
	}
	if a.RequestsPerSecond != 0 {
		opts = append(opts, ai.WithRequestsPerSecond(a.RequestsPerSecond))
	}
	cfg := ai.NewConfig(opts...)
	cfg.Normalize()
	return cfg
}

// RetryPolicy builds the adapter retry policy.
func (c *Config) RetryPolicy() pipeline.RetryPolicy {
	return pipeline.RetryPolicy{
		MaxAttempts:    c.Pipeline.MaxAttempts,
		BaseDelay:      c.Pipeline.BaseDelay,
		MaxDelay:       c.Pipeline.MaxDelay,
		AttemptTimeout: c.Pipeline.AttemptTimeout,
	}
}

// PipelineOptions returns the pipeline settings as options.
func (c *Config) PipelineOptions() []pipeline.Option {
	opts := []pipeline.Option{
		pipeline.WithTopK(c.Pipeline.TopK),
		pipeline.WithSummaryLength(c.Pipeline.SummaryMaxLength, c.Pipeline.SummaryMinLength),
		pipeline.WithTranscriptIndexing(c.Pipeline.IndexTranscripts),
	}
	if c.Pipeline.Workers > 0 {
		opts = append(opts, pipeline.WithPoolSize(c.Pipeline.Workers))
	}
	return opts
}

// KnowledgeOptions returns the knowledge base settings as options.
func (c *Config) KnowledgeOptions() []knowledge.Option {
	opts := []knowledge.Option{
		knowledge.WithChunking(c.Knowledge.ChunkSize, c.Knowledge.ChunkOverlap),
		knowledge.WithParallelThreshold(c.Knowledge.ParallelThreshold),
	}
	if c.Knowledge.Shards > 0 {
		opts = append(opts, knowledge.WithShards(c.Knowledge.Shards))
	}
	if c.Pipeline.Workers > 0 {
		opts = append(opts, knowledge.WithWorkers(c.Pipeline.Workers))
	}
	return opts
}

// ServiceOptions returns everything NewService needs.
func (c *Config) ServiceOptions() []medscribe.Option {
	return []medscribe.Option{
		medscribe.WithAIConfig(c.AIConfig()),
		medscribe.WithReportTTL(c.ReportTTL),
		medscribe.WithGCInterval(c.GCInterval),
		medscribe.WithRetryPolicy(c.RetryPolicy()),
		medscribe.WithPipelineOptions(c.PipelineOptions()...),
		medscribe.WithKnowledgeOptions(c.KnowledgeOptions()...),
	}
}
