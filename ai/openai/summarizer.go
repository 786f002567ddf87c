package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/medscribe/ai"
	"github.com/poiesic/medscribe/core"
)

// Summarizer implements ai.Summarizer using OpenAI-compatible chat APIs.
type Summarizer struct {
	chat   *chatClient
	logger *slog.Logger
}

func newSummarizer(chat *chatClient) *Summarizer {
	return &Summarizer{
		chat:   chat,
		logger: slog.Default().With("component", "openai-summarizer"),
	}
}

// NewSummarizer creates a new summarizer using the provided configuration.
func NewSummarizer(config *ai.Config) (ai.Summarizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	chat, err := newChatClient(config, newLimiter(config.RequestsPerSecond))
	if err != nil {
		return nil, err
	}
	return newSummarizer(chat), nil
}

// Summarize condenses text with the chat model. The model's reply is cut to
// maxLength words.
func (s *Summarizer) Summarize(ctx context.Context, text string, maxLength, minLength int) (*core.Summary, error) {
	if err := ai.ValidateSummaryBounds(maxLength, minLength); err != nil {
		return nil, err
	}
	if summary := ai.Verbatim(text, minLength); summary != nil {
		return summary, nil
	}

	s.logger.Debug("summarizing text", "words", core.WordCount(text))
	reply, err := s.chat.complete(ctx, summaryPrompt, buildSummaryRequest(text, maxLength, minLength), false)
	if err != nil {
		return nil, err
	}
	reply = ai.ClampWords(strings.TrimSpace(reply), maxLength)
	if reply == "" {
		return nil, fmt.Errorf("%w: empty summary from model", core.ErrCapabilityUnavailable)
	}
	return core.NewSummary(text, reply), nil
}
