package mock

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/medscribe/ai"
	"github.com/poiesic/medscribe/core"
)

// MockSummarizer is a test double for ai.Summarizer.
type MockSummarizer struct {
	// SummarizeFunc is called by Summarize if set.
	// If nil, the text is cut to maxLength words.
	SummarizeFunc func(ctx context.Context, text string, maxLength, minLength int) (*core.Summary, error)

	callCount atomic.Int64
}

// NewMockSummarizer creates a mock summarizer with default behavior.
func NewMockSummarizer() *MockSummarizer {
	return &MockSummarizer{}
}

// Summarize validates the bounds and truncates text unless SummarizeFunc is set.
func (m *MockSummarizer) Summarize(ctx context.Context, text string, maxLength, minLength int) (*core.Summary, error) {
	m.callCount.Add(1)

	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, text, maxLength, minLength)
	}
	if err := ai.ValidateSummaryBounds(maxLength, minLength); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return core.NewSummary(text, ai.ClampWords(text, maxLength)), nil
}

// CallCount returns the number of times Summarize was called.
func (m *MockSummarizer) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and injected behavior.
func (m *MockSummarizer) Reset() {
	m.callCount.Store(0)
	m.SummarizeFunc = nil
}
