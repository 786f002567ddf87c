package openai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/poiesic/medscribe/ai"
	"github.com/poiesic/medscribe/core"
)

// Transcriber implements ai.Transcriber with the Whisper transcription API.
type Transcriber struct {
	client      *goopenai.Client
	model       string
	maxDuration time.Duration
	limiter     *rate.Limiter
	logger      *slog.Logger
}

func newTranscriber(config *ai.Config, limiter *rate.Limiter) *Transcriber {
	clientConfig := goopenai.DefaultConfig(apiToken(config))
	clientConfig.BaseURL = config.TranscriptionHost
	return &Transcriber{
		client:      goopenai.NewClientWithConfig(clientConfig),
		model:       config.TranscriptionModel,
		maxDuration: config.MaxAudioDuration,
		limiter:     limiter,
		logger:      slog.Default().With("component", "openai-transcriber"),
	}
}

// NewTranscriber creates a new transcriber using the provided configuration.
func NewTranscriber(config *ai.Config) (ai.Transcriber, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newTranscriber(config, newLimiter(config.RequestsPerSecond)), nil
}

// Transcribe uploads the audio and returns its transcript. Audio is checked
// locally first so unsupported or oversized recordings never leave the process.
func (t *Transcriber) Transcribe(ctx context.Context, audio core.Audio) (*core.Transcript, error) {
	format, err := ai.CheckAudio(audio, t.maxDuration)
	if err != nil {
		return nil, err
	}
	filename := audio.Filename
	if filename == "" {
		filename = "audio." + string(format)
	}
	if err := wait(ctx, t.limiter); err != nil {
		return nil, err
	}

	t.logger.Debug("transcribing audio", "filename", filename, "bytes", len(audio.Data), "format", format)
	resp, err := t.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    t.model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio.Data),
		Format:   goopenai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		t.logger.Error("transcription failed", "filename", filename, "err", err)
		return nil, classifyTranscription(err)
	}

	if t.maxDuration > 0 && resp.Duration > t.maxDuration.Seconds() {
		return nil, fmt.Errorf("%w: audio duration %.0fs exceeds maximum %s",
			core.ErrInvalidInput, resp.Duration, t.maxDuration)
	}
	return &core.Transcript{
		Text:            strings.TrimSpace(resp.Text),
		DurationSeconds: resp.Duration,
		SourceID:        filename,
	}, nil
}
