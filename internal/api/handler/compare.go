package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sahilnarang/optigate/internal/api/response"
	"github.com/sahilnarang/optigate/internal/optimizer"
	"github.com/sahilnarang/optigate/internal/run"
	"github.com/sahilnarang/optigate/pkg/models"
)

// Lifecycle is the interface the handlers depend on: start a run and read
// its observable state. Satisfied by *run.Runner.
type Lifecycle interface {
	Start(ctx context.Context, req models.CompareRequest) (string, error)
	Snapshot() run.State
}

// NewCompareHandler returns an http.HandlerFunc for POST /api/v1/compare.
// Starting a comparison supersedes any run still in flight; the dashboard
// shows one job at a time.
func NewCompareHandler(lc Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CompareRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		req.ApplyDefaults()
		if err := req.Validate(); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}

		jobID, err := lc.Start(r.Context(), req)
		if err != nil {
			switch {
			case errors.Is(err, optimizer.ErrUnreachable), errors.Is(err, optimizer.ErrTimeout):
				response.Error(w, http.StatusBadGateway, "OPTIMIZER_UNAVAILABLE",
					"The optimization service is not available", nil)
			case errors.Is(err, optimizer.ErrServerError):
				response.Error(w, http.StatusBadGateway, "OPTIMIZER_ERROR",
					"The optimization service rejected the job", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		response.Accepted(w, map[string]string{"job_id": jobID})
	}
}

// NewStatusHandler returns an http.HandlerFunc for GET /api/v1/compare/status.
// It projects the runner's observable state; the dashboard polls it to drive
// the progress indicator and, eventually, the result view.
func NewStatusHandler(lc Lifecycle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, lc.Snapshot())
	}
}
