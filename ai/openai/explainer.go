package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/medscribe/ai"
	"github.com/poiesic/medscribe/core"
)

// TermExplainer implements ai.TermExplainer using OpenAI-compatible chat APIs.
type TermExplainer struct {
	chat   *chatClient
	logger *slog.Logger
}

type explanation struct {
	Term        string `json:"term"`
	Explanation string `json:"explanation"`
}

type explanationResponse struct {
	Explanations []explanation `json:"explanations"`
}

func newTermExplainer(chat *chatClient) *TermExplainer {
	return &TermExplainer{
		chat:   chat,
		logger: slog.Default().With("component", "openai-explainer"),
	}
}

// NewTermExplainer creates a new term explainer using the provided configuration.
func NewTermExplainer(config *ai.Config) (ai.TermExplainer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	chat, err := newChatClient(config, newLimiter(config.RequestsPerSecond))
	if err != nil {
		return nil, err
	}
	return newTermExplainer(chat), nil
}

// ExplainTerms explains every term in one request. Terms the model skips
// get ai.UnknownTermExplanation.
func (x *TermExplainer) ExplainTerms(ctx context.Context, terms []string) ([]core.TermExplanation, error) {
	if len(terms) == 0 {
		return []core.TermExplanation{}, nil
	}

	var result explanationResponse
	if err := x.chat.completeJSON(ctx, explainPrompt, strings.Join(terms, ", "), &result); err != nil {
		return nil, err
	}

	byTerm := make(map[string]string, len(result.Explanations))
	for _, e := range result.Explanations {
		byTerm[strings.ToLower(strings.TrimSpace(e.Term))] = strings.TrimSpace(e.Explanation)
	}

	explanations := make([]core.TermExplanation, len(terms))
	for i, term := range terms {
		text := byTerm[strings.ToLower(strings.TrimSpace(term))]
		if text == "" {
			text = ai.UnknownTermExplanation
		}
		explanations[i] = core.TermExplanation{Term: term, Explanation: text}
	}
	x.logger.Debug("explained terms", "requested", len(terms), "returned", len(result.Explanations))
	return explanations, nil
}
