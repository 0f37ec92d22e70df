// Package state persists pipeline run history in SQLite. Every CLI
// invocation becomes one run row; acquisition and tool steps become
// run_steps rows. The store backs the status command.
package state

import "time"

// RunStatus is the lifecycle status of a run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded CLI invocation.
type Run struct {
	ID          string
	Command     string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// StepRecord is one completed pipeline step within a run.
type StepRecord struct {
	RunID       string
	Step        string
	Detail      string
	CompletedAt time.Time
}
