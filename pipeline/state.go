package pipeline

import (
	"fmt"
	"log/slog"
	"slices"
)

// State is the position of a run in its lifecycle.
type State string

const (
	StateReceived     State = "RECEIVED"
	StateTranscribing State = "TRANSCRIBING"
	StateAnalyzing    State = "ANALYZING" // Extraction and summarization in parallel
	StateRetrieving   State = "RETRIEVING"
	StateGenerating   State = "GENERATING"
	StateCompleted    State = "COMPLETED"
	StateFailed       State = "FAILED"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Stage names the unit of work a failure or retry belongs to.
type Stage string

const (
	StageTranscribe Stage = "transcribe"
	StageExtract    Stage = "extract"
	StageSummarize  Stage = "summarize"
	StageRetrieve   Stage = "retrieve"
	StageGenerate   Stage = "generate"
	StageStore      Stage = "store"
)

// transitions lists the forward moves out of each non-terminal state.
// FAILED is reachable from all of them.
var transitions = map[State][]State{
	StateReceived:     {StateTranscribing, StateAnalyzing, StateRetrieving, StateGenerating},
	StateTranscribing: {StateAnalyzing},
	StateAnalyzing:    {StateRetrieving, StateGenerating},
	StateRetrieving:   {StateGenerating},
	StateGenerating:   {StateCompleted},
}

// run tracks the state of one pipeline invocation.
// Only the orchestrating goroutine touches it.
type run struct {
	id      string
	state   State
	partial Partial
	monitor RunMonitor
	logger  *slog.Logger
}

func newRun(id string, monitor RunMonitor, logger *slog.Logger) *run {
	return &run{
		id:      id,
		state:   StateReceived,
		monitor: monitor,
		logger:  logger.With("run", id),
	}
}

func (r *run) transition(to State) error {
	from := r.state
	if from.Terminal() {
		return fmt.Errorf("%w: %s is terminal", ErrIllegalTransition, from)
	}
	if to != StateFailed && !slices.Contains(transitions[from], to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	r.state = to
	r.logger.Debug("run state changed", "from", from, "to", to)
	r.monitor.StateChanged(from, to)
	return nil
}

// fail moves the run to FAILED and returns the stage error describing why.
func (r *run) fail(stage Stage, attempts int, err error) error {
	stageErr := &StageError{
		Stage:    stage,
		State:    r.state,
		Attempts: attempts,
		Partial:  r.partial,
		Err:      err,
	}
	if tErr := r.transition(StateFailed); tErr != nil {
		return tErr
	}
	r.logger.Warn("run failed", "stage", stage, "attempts", attempts, "err", err)
	r.monitor.Failed(stageErr)
	return stageErr
}

// retryHook reports retries of stage to the monitor.
func (r *run) retryHook(stage Stage) func(attempt int, err error) {
	return func(attempt int, err error) {
		r.logger.Debug("retrying stage", "stage", stage, "attempt", attempt, "err", err)
		r.monitor.StageRetry(stage, attempt, err)
	}
}
