// Package run owns the asynchronous lifecycle of one optimization job:
// submit, poll at a fixed interval, reconcile snapshots into observable
// state, absorb transient poll failures up to an attempt cap, and make sure
// a superseded or finished run can never mutate state again.
package run

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sahilnarang/optigate/internal/optimizer"
	"github.com/sahilnarang/optigate/pkg/models"
)

const (
	// DefaultInterval is the fixed delay between status polls. Deliberately
	// not a backoff: jobs run seconds to low minutes and the cost of a few
	// extra polls is nothing next to the added complexity.
	DefaultInterval = 500 * time.Millisecond

	// DefaultMaxAttempts caps polls per run (~5 minutes at the default
	// interval). The budget is attempt-counted, not wall-clock: a slow
	// network can stretch real elapsed time past the nominal figure.
	DefaultMaxAttempts = 600

	startingMessage = "Starting optimization..."
	failureFallback = "optimization failed"
	submitFallback  = "failed to start optimization"
)

// Option configures a Runner.
type Option func(*Runner)

// WithInterval sets the delay between status polls.
func WithInterval(d time.Duration) Option {
	return func(r *Runner) { r.interval = d }
}

// WithMaxAttempts sets the poll budget per run.
func WithMaxAttempts(n int) Option {
	return func(r *Runner) { r.maxAttempts = n }
}

// WithOnUpdate registers an observer invoked with a copy of the state after
// every accepted mutation. Called from the run's goroutine; keep it cheap.
func WithOnUpdate(fn func(State)) Option {
	return func(r *Runner) { r.onUpdate = fn }
}

// Runner drives one optimization job at a time. Starting a new run
// supersedes the previous one: any of its ticks still scheduled, or its
// status responses still in flight, become no-ops.
type Runner struct {
	client      optimizer.Client
	interval    time.Duration
	maxAttempts int
	onUpdate    func(State)

	mu    sync.Mutex
	gen   uint64 // current run generation; stale ticks carry an older value
	state State
}

// NewRunner creates a Runner polling through the given client.
func NewRunner(client optimizer.Client, opts ...Option) *Runner {
	r := &Runner{
		client:      client,
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Snapshot returns a copy of the observable state.
func (r *Runner) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start submits a new job and begins polling it. The request is treated as
// an opaque payload; validate it upstream. Submission failures are terminal
// and surfaced immediately, with no retry: they are typically deterministic
// (bad input, service down) and retrying would mask them.
func (r *Runner) Start(ctx context.Context, req models.CompareRequest) (string, error) {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.state = State{Running: true, Message: startingMessage}
	st := r.state
	r.mu.Unlock()
	r.notify(st)

	jobID, err := r.client.Submit(ctx, req)
	if err != nil {
		r.finish(gen, func(s *State) {
			s.Running = false
			s.Err = submitFailureText(err)
		})
		return "", err
	}

	// A newer Start may have superseded this run while Submit was in
	// flight; in that case the job is abandoned before its first poll.
	if !r.apply(gen, func(s *State) { s.JobID = jobID }) {
		return jobID, nil
	}

	go r.poll(gen, jobID)
	return jobID, nil
}

// Cancel abandons the current run. Deliberately silent: observable state is
// left as-is and the run's remaining ticks do nothing. An in-flight status
// request is not aborted; its response is discarded.
func (r *Runner) Cancel() {
	r.mu.Lock()
	r.gen++
	r.mu.Unlock()
}

// poll is the per-run loop. Ticks are serialized: the next poll is scheduled
// only after the current one has been fully processed, so snapshots are
// never reconciled out of order or concurrently.
func (r *Runner) poll(gen uint64, jobID string) {
	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	attempts := 0
	for {
		<-timer.C
		if !r.valid(gen) {
			return
		}

		attempts++
		if attempts > r.maxAttempts {
			msg := timeoutMessage(r.maxAttempts, r.interval)
			slog.Warn("optimization poll budget exhausted", "job_id", jobID, "attempts", r.maxAttempts)
			r.finish(gen, func(s *State) {
				s.Running = false
				s.Err = msg
			})
			return
		}

		snap, err := r.client.Status(context.Background(), jobID)
		if err != nil {
			// Transient: the optimizer keeps computing even when one
			// status check drops. Never surfaced unless the budget runs out.
			slog.Debug("status poll failed", "job_id", jobID, "attempt", attempts, "error", err)
			if !r.valid(gen) {
				return
			}
			timer.Reset(r.interval)
			continue
		}

		switch snap.Status {
		case models.StatusCompleted:
			r.finish(gen, func(s *State) {
				s.Progress = clampProgress(snap.Progress)
				s.Message = snap.Message
				s.Result = snap.Result
				s.Running = false
			})
			return

		case models.StatusFailed:
			r.finish(gen, func(s *State) {
				s.Running = false
				s.Err = failureText(snap.Error)
			})
			return

		default:
			// queued, processing, or a status newer than this client:
			// update the projection and keep polling.
			if !r.apply(gen, func(s *State) {
				s.Progress = clampProgress(snap.Progress)
				s.Message = snap.Message
			}) {
				return
			}
			timer.Reset(r.interval)
		}
	}
}

// valid reports whether the run identified by gen is still the current one.
func (r *Runner) valid(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return gen == r.gen
}

// apply mutates observable state if the run is still current. Returns false
// when the run has been superseded or already finished.
func (r *Runner) apply(gen uint64, fn func(*State)) bool {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return false
	}
	fn(&r.state)
	st := r.state
	r.mu.Unlock()
	r.notify(st)
	return true
}

// finish is apply plus guard invalidation: the run's terminal transition.
// The generation is bumped exactly once, so late-arriving snapshots for the
// same handle can never change state afterwards.
func (r *Runner) finish(gen uint64, fn func(*State)) bool {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return false
	}
	fn(&r.state)
	r.gen++
	st := r.state
	r.mu.Unlock()
	r.notify(st)
	return true
}

func (r *Runner) notify(st State) {
	if r.onUpdate != nil {
		r.onUpdate(st)
	}
}

func timeoutMessage(attempts int, interval time.Duration) string {
	budget := time.Duration(attempts) * interval
	return fmt.Sprintf("optimization timed out after %d status checks (~%s); try fewer tickers or a shorter date range",
		attempts, budget.Round(time.Second))
}

func failureText(reported string) string {
	if reported == "" {
		return failureFallback
	}
	return reported
}

func submitFailureText(err error) string {
	if err == nil || err.Error() == "" {
		return submitFallback
	}
	return err.Error()
}
