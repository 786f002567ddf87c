package mock

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/medscribe/core"
)

// DefaultTranscript is the text returned by a MockTranscriber without
// injected behavior.
const DefaultTranscript = "Patient reports persistent cough for two weeks and mild fever."

// MockTranscriber is a test double for ai.Transcriber.
type MockTranscriber struct {
	// TranscribeFunc is called by Transcribe if set.
	TranscribeFunc func(ctx context.Context, audio core.Audio) (*core.Transcript, error)

	callCount atomic.Int64
}

// NewMockTranscriber creates a mock transcriber returning DefaultTranscript.
func NewMockTranscriber() *MockTranscriber {
	return &MockTranscriber{}
}

// Transcribe returns a fixed transcript unless TranscribeFunc is set.
func (m *MockTranscriber) Transcribe(ctx context.Context, audio core.Audio) (*core.Transcript, error) {
	m.callCount.Add(1)

	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, audio)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &core.Transcript{Text: DefaultTranscript, SourceID: audio.Filename}, nil
}

// CallCount returns the number of times Transcribe was called.
func (m *MockTranscriber) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and injected behavior.
func (m *MockTranscriber) Reset() {
	m.callCount.Store(0)
	m.TranscribeFunc = nil
}
