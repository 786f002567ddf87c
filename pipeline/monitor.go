package pipeline

import (
	"log/slog"
	"time"

	"github.com/poiesic/medscribe/core"
)

// RunMonitor provides hooks to observe a pipeline run.
// StageRetry may be called concurrently from the parallel analysis
// branches, so implementations must be safe for concurrent use.
type RunMonitor interface {
	Start(runID string)
	StateChanged(from, to State)
	StageRetry(stage Stage, attempt int, err error)
	StageCompleted(stage Stage, attempts int, elapsed time.Duration)
	Failed(err *StageError)
	Finish(report *core.Report)
}

// noopMonitor is a no-op implementation of RunMonitor
type noopMonitor struct{}

var _ RunMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                                  {}
func (n *noopMonitor) StateChanged(_, _ State)                         {}
func (n *noopMonitor) StageRetry(_ Stage, _ int, _ error)              {}
func (n *noopMonitor) StageCompleted(_ Stage, _ int, _ time.Duration) {}
func (n *noopMonitor) Failed(_ *StageError)                            {}
func (n *noopMonitor) Finish(_ *core.Report)                           {}

// LogMonitor writes every hook to a structured logger.
type LogMonitor struct {
	logger *slog.Logger
}

var _ RunMonitor = (*LogMonitor)(nil)

// NewLogMonitor creates a monitor logging to logger, or slog.Default() if nil.
func NewLogMonitor(logger *slog.Logger) *LogMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMonitor{logger: logger.With("component", "run-monitor")}
}

func (m *LogMonitor) Start(runID string) {
	m.logger.Info("run started", "run", runID)
}

func (m *LogMonitor) StateChanged(from, to State) {
	m.logger.Info("state changed", "from", from, "to", to)
}

func (m *LogMonitor) StageRetry(stage Stage, attempt int, err error) {
	m.logger.Warn("stage retry", "stage", stage, "attempt", attempt, "err", err)
}

func (m *LogMonitor) StageCompleted(stage Stage, attempts int, elapsed time.Duration) {
	m.logger.Info("stage completed", "stage", stage, "attempts", attempts, "elapsed", elapsed)
}

func (m *LogMonitor) Failed(err *StageError) {
	m.logger.Error("run failed", "stage", err.Stage, "state", err.State, "attempts", err.Attempts, "err", err.Err)
}

func (m *LogMonitor) Finish(report *core.Report) {
	m.logger.Info("run finished", "report", report.ID, "entities", len(report.Entities), "degraded", report.Degraded)
}
