package local

import (
	"context"
	"strings"

	"github.com/poiesic/medscribe/ai"
	"github.com/poiesic/medscribe/core"
)

// GlossaryExplainer explains terms from the medical lexicon.
type GlossaryExplainer struct{}

// NewGlossaryExplainer creates a new glossary explainer.
func NewGlossaryExplainer() *GlossaryExplainer {
	return &GlossaryExplainer{}
}

// ExplainTerms implements ai.TermExplainer.
func (g *GlossaryExplainer) ExplainTerms(ctx context.Context, terms []string) ([]core.TermExplanation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	explanations := make([]core.TermExplanation, 0, len(terms))
	for _, term := range terms {
		explanation := ai.UnknownTermExplanation
		if entry, ok := Lookup(strings.TrimSpace(term)); ok {
			explanation = entry.Explanation
		}
		explanations = append(explanations, core.TermExplanation{Term: term, Explanation: explanation})
	}
	return explanations, nil
}
