package bt

import (
	"errors"
	"time"
)

// ErrRunNotFound is returned when a run ID has no record.
var ErrRunNotFound = errors.New("run not found")

// Operation names a recorded repository operation.
type Operation string

const (
	OperationBackup Operation = "backup"
	OperationInit   Operation = "init"
	OperationCheck  Operation = "check"
)

// RunStatus is the state of a recorded run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// Run is one recorded invocation of a repository operation.
type Run struct {
	ID            string
	Target        string
	Operation     Operation
	Status        RunStatus
	StartedAt     time.Time
	FinishedAt    time.Time // zero while running
	SnapshotID    string
	SelectedCount int
	FilesNew      int
	FilesChanged  int
	BytesAdded    int64
	Error         string
}

// Finished reports whether the run has completed, successfully or not.
func (r *Run) Finished() bool { return !r.FinishedAt.IsZero() }

// Duration returns how long the run took, or zero if it is still running.
func (r *Run) Duration() time.Duration {
	if !r.Finished() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Database stores the history of runs.
type Database interface {
	// CreateRun inserts a new run. run.ID must be set and unique.
	CreateRun(run *Run) error

	// FinishRun updates the outcome fields of an existing run: status,
	// finish time, snapshot ID, counters and error.
	// Returns ErrRunNotFound if no run has run.ID.
	FinishRun(run *Run) error

	// FindRun returns the run with the given ID, or nil if there is none.
	FindRun(id string) (*Run, error)

	// ListRuns returns the most recent runs, newest first.
	// A limit of zero or less returns every run.
	ListRuns(limit int) ([]*Run, error)

	Close() error
}
