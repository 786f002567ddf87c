package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/poiesic/medscribe/ai"
	"github.com/poiesic/medscribe/core"
)

// maxParseAttempts bounds requests for a response that parses as JSON.
const maxParseAttempts = 3

// chatClient wraps a chat model with throttling and JSON handling.
// It is shared by every chat-backed capability of a provider.
type chatClient struct {
	model   llms.Model
	limiter *rate.Limiter
	logger  *slog.Logger
}

func newChatClient(config *ai.Config, limiter *rate.Limiter) (*chatClient, error) {
	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(apiToken(config)),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}
	return &chatClient{
		model:   client,
		limiter: limiter,
		logger:  slog.Default().With("component", "openai-chat"),
	}, nil
}

func apiToken(config *ai.Config) string {
	if config.APIKey == "" {
		return "none"
	}
	return config.APIKey
}

// newLimiter returns nil when rps is zero, which disables throttling.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

// complete sends a system and user message and returns the reply text.
func (c *chatClient) complete(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	if err := wait(ctx, c.limiter); err != nil {
		return "", err
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(user)},
		},
	}
	opts := []llms.CallOption{llms.WithTemperature(0.0)}
	if jsonMode {
		opts = append(opts, llms.WithJSONMode())
	}

	response, err := c.model.GenerateContent(ctx, content, opts...)
	if err != nil {
		c.logger.Error("failed to generate content", "err", err)
		return "", classify("chat", err)
	}
	if len(response.Choices) < 1 {
		return "", fmt.Errorf("%w: chat model returned no choices", core.ErrCapabilityUnavailable)
	}
	return response.Choices[0].Content, nil
}

// completeJSON asks for a JSON reply and decodes it into out. Replies that
// fail to parse are requested again, up to maxParseAttempts times.
func (c *chatClient) completeJSON(ctx context.Context, system, user string, out any) error {
	var lastErr error
	for attempt := 0; attempt < maxParseAttempts; attempt++ {
		text, err := c.complete(ctx, system, user, true)
		if err != nil {
			return err
		}

		text = cleanResponse(text)
		if err := json.Unmarshal([]byte(text), out); err != nil {
			lastErr = err
			c.logger.Warn("error parsing model response",
				"attempt", attempt+1,
				"response", text,
				"err", err)
			continue
		}
		return nil
	}

	c.logger.Error("failed to parse model response after retries", "err", lastErr)
	return fmt.Errorf("chat: unparseable response after %d attempts: %w", maxParseAttempts, lastErr)
}
