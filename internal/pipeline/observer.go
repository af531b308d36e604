package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moviepipe/moviepipe/pkg/moviepipe"
)

// Status is the final state of a task within a run.
type Status int

const (
	StatusSucceeded Status = iota
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Observer receives run and task lifecycle events.
// Tasks of the same stage report concurrently, so implementations must be
// safe for concurrent use.
type Observer interface {
	RunStarted(runID uuid.UUID)
	TaskStarted(task string)
	TaskFinished(task string, status Status, elapsed time.Duration, err error)
	RunFinished(report *moviepipe.RunReport, err error)
}

// Observers fans events out to several observers in order.
type Observers []Observer

func (o Observers) RunStarted(runID uuid.UUID) {
	for _, obs := range o {
		obs.RunStarted(runID)
	}
}

func (o Observers) TaskStarted(task string) {
	for _, obs := range o {
		obs.TaskStarted(task)
	}
}

func (o Observers) TaskFinished(task string, status Status, elapsed time.Duration, err error) {
	for _, obs := range o {
		obs.TaskFinished(task, status, elapsed, err)
	}
}

func (o Observers) RunFinished(report *moviepipe.RunReport, err error) {
	for _, obs := range o {
		obs.RunFinished(report, err)
	}
}

// LogObserver writes lifecycle events to a Logger. Task lines carry the id
// of the run that was last started.
type LogObserver struct {
	logger moviepipe.Logger

	mu    sync.Mutex
	runID uuid.UUID
}

// NewLogObserver creates a LogObserver.
func NewLogObserver(logger moviepipe.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (l *LogObserver) RunStarted(runID uuid.UUID) {
	l.mu.Lock()
	l.runID = runID
	l.mu.Unlock()
	l.logger.Info("Starting %s run %s", moviepipe.PipelineName, runID)
}

func (l *LogObserver) currentRun() uuid.UUID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.runID
}

func (l *LogObserver) TaskStarted(task string) {
	l.logger.Verbose("Task %s started (run %s)", task, l.currentRun())
}

func (l *LogObserver) TaskFinished(task string, status Status, elapsed time.Duration, err error) {
	runID := l.currentRun()
	switch status {
	case StatusSucceeded:
		l.logger.Info("Task %s succeeded in %s (run %s)", task, elapsed.Round(time.Millisecond), runID)
	case StatusFailed:
		l.logger.Error("Task %s failed after %s (run %s): %v", task, elapsed.Round(time.Millisecond), runID, err)
	case StatusSkipped:
		l.logger.Info("Task %s skipped, upstream failed (run %s)", task, runID)
	}
}

func (l *LogObserver) RunFinished(report *moviepipe.RunReport, err error) {
	if err != nil {
		l.logger.Error("Run %s failed after %s", report.RunID, report.Duration().Round(time.Millisecond))
		return
	}
	l.logger.Info("Run %s finished in %s: %d movies, %d ratings, %d merged, %d loaded",
		report.RunID, report.Duration().Round(time.Millisecond),
		report.MoviesKept, report.RatingsKept, report.MergedRows, report.LoadedRows)
}
