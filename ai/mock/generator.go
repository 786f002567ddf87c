package mock

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/medscribe/ai"
)

// MockNarrativeGenerator is a test double for ai.NarrativeGenerator.
type MockNarrativeGenerator struct {
	// GenerateNarrativeFunc is called by GenerateNarrative if set.
	GenerateNarrativeFunc func(ctx context.Context, req ai.NarrativeRequest) (string, error)

	callCount atomic.Int64
}

// NewMockNarrativeGenerator creates a mock generator that echoes the summary.
func NewMockNarrativeGenerator() *MockNarrativeGenerator {
	return &MockNarrativeGenerator{}
}

// GenerateNarrative returns "Narrative: " followed by the summary text
// unless GenerateNarrativeFunc is set.
func (m *MockNarrativeGenerator) GenerateNarrative(ctx context.Context, req ai.NarrativeRequest) (string, error) {
	m.callCount.Add(1)

	if m.GenerateNarrativeFunc != nil {
		return m.GenerateNarrativeFunc(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "Narrative: " + req.Summary.Text, nil
}

// CallCount returns the number of times GenerateNarrative was called.
func (m *MockNarrativeGenerator) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and injected behavior.
func (m *MockNarrativeGenerator) Reset() {
	m.callCount.Store(0)
	m.GenerateNarrativeFunc = nil
}
