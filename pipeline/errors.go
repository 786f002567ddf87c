package pipeline

import (
	"errors"
	"fmt"

	"github.com/poiesic/medscribe/core"
)

var (
	// ErrProviderRequired indicates that an AI provider is required but was not provided.
	ErrProviderRequired = errors.New("AI provider is required")

	// ErrReportRepositoryRequired indicates that a report repository is required but was not provided.
	ErrReportRepositoryRequired = errors.New("report repository is required")

	// ErrInvalidMaxAttempts indicates a retry policy allowing no attempts.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than 0")

	// ErrIllegalTransition indicates a run moved between states out of order.
	ErrIllegalTransition = errors.New("illegal state transition")
)

// Partial holds the intermediate outputs a run completed before failing.
type Partial struct {
	Transcript *core.Transcript
	Entities   []core.Entity
	Summary    *core.Summary
	Matches    []core.RetrievalMatch
}

// StageError reports the stage a run failed in, along with what it had
// already produced.
type StageError struct {
	Stage    Stage
	State    State // State the run was in when the stage failed
	Attempts int
	Partial  Partial
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Stage, e.Attempts, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
