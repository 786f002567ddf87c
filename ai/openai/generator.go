package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/medscribe/ai"
	"github.com/poiesic/medscribe/core"
)

// NarrativeGenerator implements ai.NarrativeGenerator using OpenAI-compatible chat APIs.
type NarrativeGenerator struct {
	chat   *chatClient
	logger *slog.Logger
}

func newNarrativeGenerator(chat *chatClient) *NarrativeGenerator {
	return &NarrativeGenerator{
		chat:   chat,
		logger: slog.Default().With("component", "openai-generator"),
	}
}

// NewNarrativeGenerator creates a new narrative generator using the provided configuration.
func NewNarrativeGenerator(config *ai.Config) (ai.NarrativeGenerator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	chat, err := newChatClient(config, newLimiter(config.RequestsPerSecond))
	if err != nil {
		return nil, err
	}
	return newNarrativeGenerator(chat), nil
}

// GenerateNarrative writes the clinical report body.
func (g *NarrativeGenerator) GenerateNarrative(ctx context.Context, req ai.NarrativeRequest) (string, error) {
	g.logger.Debug("generating narrative",
		"entities", len(req.Entities),
		"context", len(req.Context))

	reply, err := g.chat.complete(ctx, narrativePrompt, buildNarrativeRequest(req), false)
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", fmt.Errorf("%w: empty narrative from model", core.ErrCapabilityUnavailable)
	}
	return reply, nil
}
