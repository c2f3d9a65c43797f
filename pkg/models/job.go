package models

import "encoding/json"

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// StatusSnapshot is one poll result for an in-flight optimization job.
// The optimizer returns a job_id on POST /compare/start; clients poll
// GET /jobs/{job_id} until status is completed or failed.
type StatusSnapshot struct {
	Status   string          `json:"status"`
	Progress float64         `json:"progress"`
	Message  string          `json:"message"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Terminal reports whether no further polling should follow this snapshot.
// The status enum is closed, but the optimizer may grow new phases; anything
// unrecognized is treated as still running rather than terminal.
func (s StatusSnapshot) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}
