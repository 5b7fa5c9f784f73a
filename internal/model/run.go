// Package model holds the records shared by the store, the exporters and the
// HTTP API.
package model

import "time"

// RunStatus represents the current state of a screening run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunOptions are the parameters a run was started with.
type RunOptions struct {
	TargetFiles []string `json:"target_files"`
	DaysBack    int      `json:"days_back"`
	Policy      string   `json:"policy"`
	Workers     int      `json:"workers"`
}

// RunStats summarizes a finished run.
type RunStats struct {
	Companies int    `json:"companies"`
	Saved     int    `json:"saved"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Documents int    `json:"index_documents"`
	Error     string `json:"error,omitempty"`
}

// Run is one invocation of the screening batch.
type Run struct {
	ID        string     `json:"id"`
	Status    RunStatus  `json:"status"`
	Options   RunOptions `json:"options"`
	Stats     *RunStats  `json:"stats,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Status returns the terminal status for the stats.
func (s RunStats) Status() RunStatus {
	if s.Error != "" {
		return RunStatusFailed
	}
	return RunStatusComplete
}
