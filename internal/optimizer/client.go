package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/sahilnarang/optigate/pkg/models"
)

// Sentinel errors for optimizer client failures.
var (
	ErrUnreachable = errors.New("optimizer unreachable")
	ErrTimeout     = errors.New("optimizer request timeout")
	ErrServerError = errors.New("optimizer server error")
	ErrJobNotFound = errors.New("optimizer job not found")
)

// Client is the interface for talking to the remote optimization service.
// Submit creates one comparison job and returns its identifier; Status
// fetches the current snapshot for a previously submitted job.
type Client interface {
	Submit(ctx context.Context, req models.CompareRequest) (string, error)
	Status(ctx context.Context, jobID string) (models.StatusSnapshot, error)
	Health(ctx context.Context) error
}

// HTTPClient implements Client against the optimizer's HTTP API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a new optimizer HTTP client. The timeout bounds each
// individual request, not a whole job run.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Submit(ctx context.Context, req models.CompareRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	u := fmt.Sprintf("%s/compare/start", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", serverError(resp)
	}

	var submitResp struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&submitResp); err != nil {
		return "", fmt.Errorf("decoding submit response: %w", err)
	}
	if submitResp.JobID == "" {
		return "", fmt.Errorf("%w: submit response missing job_id", ErrServerError)
	}

	return submitResp.JobID, nil
}

func (c *HTTPClient) Status(ctx context.Context, jobID string) (models.StatusSnapshot, error) {
	u := fmt.Sprintf("%s/jobs/%s", c.baseURL, url.PathEscape(jobID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.StatusSnapshot{}, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return models.StatusSnapshot{}, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return models.StatusSnapshot{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if resp.StatusCode != http.StatusOK {
		return models.StatusSnapshot{}, serverError(resp)
	}

	var snap models.StatusSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return models.StatusSnapshot{}, fmt.Errorf("decoding status response: %w", err)
	}

	return snap, nil
}

func (c *HTTPClient) Health(ctx context.Context) error {
	u := fmt.Sprintf("%s/health", c.baseURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: optimizer not healthy (status %d)", ErrUnreachable, resp.StatusCode)
	}

	return nil
}

// serverError extracts a FastAPI-style {"detail": "..."} message when present.
func serverError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		return fmt.Errorf("%w: status %d: %s", ErrServerError, resp.StatusCode, detail.Detail)
	}
	return fmt.Errorf("%w: status %d", ErrServerError, resp.StatusCode)
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
