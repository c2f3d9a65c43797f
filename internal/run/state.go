package run

import "encoding/json"

// State is the externally observable projection of the current job run.
// It is written only by the Runner; everything else reads copies via
// Runner.Snapshot or the OnUpdate observer.
type State struct {
	Running  bool            `json:"running"`
	JobID    string          `json:"job_id,omitempty"`
	Progress float64         `json:"progress"`
	Message  string          `json:"message,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Err      string          `json:"error,omitempty"`
}

// clampProgress bounds a reported progress value to [0, 100] for display.
// The optimizer does not guarantee the range and progress need not be
// monotonic.
func clampProgress(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
