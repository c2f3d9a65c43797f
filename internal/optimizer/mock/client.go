package mock

import (
	"context"
	"sync"

	"github.com/sahilnarang/optigate/internal/optimizer"
	"github.com/sahilnarang/optigate/pkg/models"
)

// Step is one scripted response to a Status call. If Err is non-nil it is
// returned instead of the snapshot. A non-nil Gate blocks the call until the
// channel is closed, which lets tests hold a poll in flight.
type Step struct {
	Snap models.StatusSnapshot
	Err  error
	Gate chan struct{}
}

// Client satisfies optimizer.Client for testing. Status calls walk the Script
// in order; once exhausted, the last step repeats. Submit and Health can be
// overridden with func fields.
type Client struct {
	JobID      string
	Script     []Step
	SubmitFunc func(ctx context.Context, req models.CompareRequest) (string, error)
	HealthFunc func(ctx context.Context) error

	mu          sync.Mutex
	submitCalls int
	statusCalls int
}

func (c *Client) Submit(ctx context.Context, req models.CompareRequest) (string, error) {
	c.mu.Lock()
	c.submitCalls++
	c.mu.Unlock()

	if c.SubmitFunc != nil {
		return c.SubmitFunc(ctx, req)
	}
	if c.JobID != "" {
		return c.JobID, nil
	}
	return "job-mock", nil
}

func (c *Client) Status(ctx context.Context, jobID string) (models.StatusSnapshot, error) {
	c.mu.Lock()
	idx := c.statusCalls
	c.statusCalls++
	if idx >= len(c.Script) {
		idx = len(c.Script) - 1
	}
	var step Step
	if idx >= 0 {
		step = c.Script[idx]
	}
	c.mu.Unlock()

	if step.Gate != nil {
		select {
		case <-step.Gate:
		case <-ctx.Done():
			return models.StatusSnapshot{}, ctx.Err()
		}
	}
	if step.Err != nil {
		return models.StatusSnapshot{}, step.Err
	}
	return step.Snap, nil
}

func (c *Client) Health(ctx context.Context) error {
	if c.HealthFunc != nil {
		return c.HealthFunc(ctx)
	}
	return nil
}

// SubmitCalls returns how many times Submit has been invoked.
func (c *Client) SubmitCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitCalls
}

// StatusCalls returns how many times Status has been invoked.
func (c *Client) StatusCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusCalls
}

// Compile-time check that Client implements optimizer.Client.
var _ optimizer.Client = (*Client)(nil)
