package models

import (
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	RunStatusRunning   = "Running"
	RunStatusCompleted = "Completed"
	RunStatusError     = "Error"
)

// Run is the persisted summary of one sitemap generation.
type Run struct {
	ID         uuid.UUID      `json:"id"`
	Source     string         `json:"source"`
	Hostname   string         `json:"hostname"`
	Output     string         `json:"output"`
	Status     string         `json:"status"`
	Entries    int            `json:"entries"`
	Skipped    map[string]int `json:"skipped,omitempty"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
}

// NewRun creates a new run with generated UUID and start timestamp
func NewRun(source, hostname string) *Run {
	return &Run{
		ID:        uuid.New(),
		Source:    source,
		Hostname:  hostname,
		Status:    RunStatusRunning,
		Skipped:   make(map[string]int),
		StartedAt: time.Now(),
	}
}

// Finish marks the run completed or failed.
func (r *Run) Finish(err error) {
	now := time.Now()
	r.FinishedAt = &now
	if err != nil {
		r.Status = RunStatusError
		r.Error = err.Error()
		return
	}
	r.Status = RunStatusCompleted
}
