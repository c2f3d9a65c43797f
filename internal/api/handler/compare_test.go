package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahilnarang/optigate/internal/api/handler"
	"github.com/sahilnarang/optigate/internal/optimizer"
	"github.com/sahilnarang/optigate/internal/run"
	"github.com/sahilnarang/optigate/pkg/models"
)

// fakeLifecycle satisfies handler.Lifecycle without a real poll loop.
type fakeLifecycle struct {
	jobID    string
	startErr error
	started  []models.CompareRequest
	state    run.State
}

func (f *fakeLifecycle) Start(_ context.Context, req models.CompareRequest) (string, error) {
	f.started = append(f.started, req)
	if f.startErr != nil {
		return "", f.startErr
	}
	return f.jobID, nil
}

func (f *fakeLifecycle) Snapshot() run.State { return f.state }

var _ handler.Lifecycle = (*fakeLifecycle)(nil)

func postCompare(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/compare", strings.NewReader(body))
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func errBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"].(map[string]any)
}

func dataBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["data"].(map[string]any)
}

// --- compare ---

func TestCompare_Accepted(t *testing.T) {
	lc := &fakeLifecycle{jobID: "job-9"}
	h := handler.NewCompareHandler(lc)

	w := postCompare(t, h, `{"tickers":["AAPL","MSFT","GLD"]}`)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "job-9", dataBody(t, w)["job_id"])

	require.Len(t, lc.started, 1)
	// Defaults applied before submission
	assert.Equal(t, 252, lc.started[0].TrainingWindow)
	assert.Equal(t, models.BenchmarkEqualWeight, lc.started[0].BenchmarkType)
}

func TestCompare_InvalidJSON(t *testing.T) {
	lc := &fakeLifecycle{jobID: "job-9"}
	h := handler.NewCompareHandler(lc)

	w := postCompare(t, h, `{"tickers": [`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errBody(t, w)["code"])
	assert.Empty(t, lc.started)
}

func TestCompare_ValidationFailure(t *testing.T) {
	lc := &fakeLifecycle{jobID: "job-9"}
	h := handler.NewCompareHandler(lc)

	w := postCompare(t, h, `{"tickers":["SPY"]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errBody(t, w)["message"], "at least 2 tickers")
	assert.Empty(t, lc.started)
}

func TestCompare_OptimizerUnreachable(t *testing.T) {
	lc := &fakeLifecycle{startErr: optimizer.ErrUnreachable}
	h := handler.NewCompareHandler(lc)

	w := postCompare(t, h, `{"tickers":["AAPL","MSFT"]}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "OPTIMIZER_UNAVAILABLE", errBody(t, w)["code"])
}

func TestCompare_OptimizerRejects(t *testing.T) {
	lc := &fakeLifecycle{startErr: optimizer.ErrServerError}
	h := handler.NewCompareHandler(lc)

	w := postCompare(t, h, `{"tickers":["AAPL","MSFT"]}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "OPTIMIZER_ERROR", errBody(t, w)["code"])
}

// --- status ---

func TestStatus_RunningProjection(t *testing.T) {
	lc := &fakeLifecycle{state: run.State{
		Running:  true,
		JobID:    "job-9",
		Progress: 45,
		Message:  "Running HRP",
	}}
	h := handler.NewStatusHandler(lc)

	req := httptest.NewRequest("GET", "/api/v1/compare/status", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataBody(t, w)
	assert.Equal(t, true, data["running"])
	assert.Equal(t, "job-9", data["job_id"])
	assert.Equal(t, 45.0, data["progress"])
	assert.Equal(t, "Running HRP", data["message"])
	_, hasResult := data["result"]
	assert.False(t, hasResult)
}

func TestStatus_CompletedProjection(t *testing.T) {
	lc := &fakeLifecycle{state: run.State{
		JobID:    "job-9",
		Progress: 100,
		Message:  "Optimization Complete",
		Result:   json.RawMessage(`{"benchmark_name":"Equal Weight"}`),
	}}
	h := handler.NewStatusHandler(lc)

	req := httptest.NewRequest("GET", "/api/v1/compare/status", nil)
	w := httptest.NewRecorder()
	h(w, req)

	data := dataBody(t, w)
	assert.Equal(t, false, data["running"])
	result := data["result"].(map[string]any)
	assert.Equal(t, "Equal Weight", result["benchmark_name"])
	_, hasErr := data["error"]
	assert.False(t, hasErr)
}

func TestStatus_FailedProjection(t *testing.T) {
	lc := &fakeLifecycle{state: run.State{
		JobID: "job-9",
		Err:   "could not fetch prices for ZZZZ",
	}}
	h := handler.NewStatusHandler(lc)

	req := httptest.NewRequest("GET", "/api/v1/compare/status", nil)
	w := httptest.NewRecorder()
	h(w, req)

	data := dataBody(t, w)
	assert.Equal(t, "could not fetch prices for ZZZZ", data["error"])
}

// --- version ---

func TestVersion(t *testing.T) {
	h := handler.NewVersionHandler()

	req := httptest.NewRequest("GET", "/api/v1/version", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := dataBody(t, w)
	assert.Equal(t, handler.Version, data["version"])
	assert.ElementsMatch(t, []any{"hrp", "gmv", "mvo"}, data["methods"].([]any))
}
