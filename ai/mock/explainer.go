package mock

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/medscribe/core"
)

// MockTermExplainer is a test double for ai.TermExplainer.
type MockTermExplainer struct {
	// ExplainTermsFunc is called by ExplainTerms if set.
	ExplainTermsFunc func(ctx context.Context, terms []string) ([]core.TermExplanation, error)

	callCount atomic.Int64
}

// NewMockTermExplainer creates a mock term explainer with default behavior.
func NewMockTermExplainer() *MockTermExplainer {
	return &MockTermExplainer{}
}

// ExplainTerms returns "Explanation of <term>" for every term unless
// ExplainTermsFunc is set.
func (m *MockTermExplainer) ExplainTerms(ctx context.Context, terms []string) ([]core.TermExplanation, error) {
	m.callCount.Add(1)

	if m.ExplainTermsFunc != nil {
		return m.ExplainTermsFunc(ctx, terms)
	}
	explanations := make([]core.TermExplanation, len(terms))
	for i, term := range terms {
		explanations[i] = core.TermExplanation{Term: term, Explanation: "Explanation of " + term}
	}
	return explanations, nil
}

// CallCount returns the number of times ExplainTerms was called.
func (m *MockTermExplainer) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and injected behavior.
func (m *MockTermExplainer) Reset() {
	m.callCount.Store(0)
	m.ExplainTermsFunc = nil
}
