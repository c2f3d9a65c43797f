package optimizer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sahilnarang/optigate/pkg/models"
)

// --- helpers ---

func optimizerServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(handler)
}

func newTestClient(t *testing.T, baseURL string) *HTTPClient {
	t.Helper()
	return NewHTTPClient(baseURL, 5*time.Second)
}

func compareRequest() models.CompareRequest {
	r := models.CompareRequest{Tickers: []string{"AAPL", "MSFT"}}
	r.ApplyDefaults()
	return r
}

// --- Submit tests ---

func TestSubmit_ReturnsJobID(t *testing.T) {
	ts := optimizerServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/compare/start" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}

		var req models.CompareRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		if len(req.Tickers) != 2 || req.Tickers[0] != "AAPL" {
			t.Errorf("unexpected tickers: %v", req.Tickers)
		}
		if req.TrainingWindow != 252 {
			t.Errorf("unexpected training window: %d", req.TrainingWindow)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"job_id": "7f3d2c1a"})
	})
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	jobID, err := c.Submit(context.Background(), compareRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if jobID != "7f3d2c1a" {
		t.Errorf("unexpected job id: %s", jobID)
	}
}

func TestSubmit_ServerErrorWithDetail(t *testing.T) {
	ts := optimizerServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"detail": "min_weight cannot exceed max_weight"})
	})
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.Submit(context.Background(), compareRequest())
	if !errors.Is(err, ErrServerError) {
		t.Fatalf("expected ErrServerError, got %v", err)
	}
	if got := err.Error(); !strings.Contains(got, "min_weight cannot exceed max_weight") {
		t.Errorf("expected detail in error, got %q", got)
	}
}

func TestSubmit_MissingJobID(t *testing.T) {
	ts := optimizerServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{})
	})
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.Submit(context.Background(), compareRequest())
	if !errors.Is(err, ErrServerError) {
		t.Fatalf("expected ErrServerError, got %v", err)
	}
}

func TestSubmit_Unreachable(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	_, err := c.Submit(context.Background(), compareRequest())
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}

// --- Status tests ---

func TestStatus_ValidSnapshot(t *testing.T) {
	ts := optimizerServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jobs/7f3d2c1a" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":   "processing",
			"progress": 45,
			"message":  "Running HRP",
		})
	})
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	snap, err := c.Status(context.Background(), "7f3d2c1a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Status != models.StatusProcessing {
		t.Errorf("unexpected status: %s", snap.Status)
	}
	if snap.Progress != 45 {
		t.Errorf("unexpected progress: %g", snap.Progress)
	}
	if snap.Message != "Running HRP" {
		t.Errorf("unexpected message: %s", snap.Message)
	}
	if snap.Terminal() {
		t.Error("processing snapshot should not be terminal")
	}
}

func TestStatus_CompletedCarriesResult(t *testing.T) {
	ts := optimizerServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":   "completed",
			"progress": 100,
			"message":  "Optimization Complete",
			"result":   map[string]any{"benchmark_name": "Equal Weight"},
		})
	})
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	snap, err := c.Status(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !snap.Terminal() {
		t.Error("completed snapshot should be terminal")
	}
	var result map[string]any
	if err := json.Unmarshal(snap.Result, &result); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	if result["benchmark_name"] != "Equal Weight" {
		t.Errorf("unexpected result payload: %v", result)
	}
}

func TestStatus_NotFound(t *testing.T) {
	ts := optimizerServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Job not found"})
	})
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	_, err := c.Status(context.Background(), "gone")
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestStatus_PathEscapesJobID(t *testing.T) {
	var gotPath string
	ts := optimizerServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"status": "queued", "progress": 0})
	})
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	if _, err := c.Status(context.Background(), "a/b c"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/jobs/a%2Fb%20c" {
		t.Errorf("job id not escaped, path: %s", gotPath)
	}
}

func TestStatus_ContextCancelled(t *testing.T) {
	ts := optimizerServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := newTestClient(t, ts.URL)
	_, err := c.Status(ctx, "job-1")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

// --- Health tests ---

func TestHealth_OK(t *testing.T) {
	ts := optimizerServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHealth_NotHealthy(t *testing.T) {
	ts := optimizerServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer ts.Close()

	c := newTestClient(t, ts.URL)
	err := c.Health(context.Background())
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}
