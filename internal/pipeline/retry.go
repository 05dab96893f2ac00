package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/HendryAvila/specforge/internal/stages"
)

// RetryPolicy bounds how transient oracle failures are absorbed. It is
// a plain value object so the same policy serves every stage; no stage
// carries its own retry logic.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	CapDelay    time.Duration
}

// DefaultRetryPolicy matches the pipeline's historical behavior:
// three attempts, half-second base, eight-second ceiling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		CapDelay:    8 * time.Second,
	}
}

// Backoff returns the sleep before the given attempt (1-based):
// min(base * 2^(attempt-1), cap). Attempt 1 has no backoff.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < attempt-1; i++ {
		d *= 2
		if d >= p.CapDelay {
			return p.CapDelay
		}
	}
	if d > p.CapDelay {
		return p.CapDelay
	}
	return d
}

// StageError is the terminal failure of one stage after retries are
// exhausted, tagged with the stage and attempt count.
type StageError struct {
	Stage    stages.Stage
	Attempts int
	Err      error
}

// Error implements error.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed after %d attempts: %v", e.Stage, e.Attempts, e.Err)
}

// Unwrap exposes the last underlying error.
func (e *StageError) Unwrap() error { return e.Err }

// runWithRetry invokes fn up to policy.MaxAttempts times, sleeping
// min(base*2^(attempt-1), cap) between attempts. This is the single
// place transient failures are absorbed: callers only ever see a
// *StageError once attempts are exhausted, or the context's error when
// cancellation fires during a backoff sleep.
//
// Returned retries counts the attempts beyond the first that were
// needed (0 when the first attempt succeeds). An event is emitted
// before each attempt and after the terminal outcome.
func runWithRetry(
	ctx context.Context,
	policy RetryPolicy,
	stage stages.Stage,
	emit func(Event),
	fn func(context.Context) (json.RawMessage, error),
) (json.RawMessage, int, error) {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		// Cancellation is cooperative: checked before each backoff
		// sleep and before each attempt, never mid-call.
		if wait := policy.Backoff(attempt); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, attempt - 1, ctx.Err()
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, attempt - 1, err
		}

		emit(Event{
			Stage:     stage,
			Status:    EventProcessing,
			Message:   fmt.Sprintf("%s: attempt %d of %d", stages.DisplayName(stage), attempt, attempts),
			Timestamp: timeNow(),
		})

		raw, err := fn(ctx)
		if err == nil {
			emit(Event{
				Stage:     stage,
				Status:    EventComplete,
				Message:   fmt.Sprintf("%s: succeeded on attempt %d", stages.DisplayName(stage), attempt),
				Timestamp: timeNow(),
			})
			return raw, attempt - 1, nil
		}
		lastErr = err
	}

	terminal := &StageError{Stage: stage, Attempts: attempts, Err: lastErr}
	emit(Event{
		Stage:     stage,
		Status:    EventError,
		Message:   terminal.Error(),
		Timestamp: timeNow(),
	})
	return nil, attempts - 1, terminal
}
