// Package retry provides a minimal bounded-retry wrapper for operations
// that fail transiently, such as database transactions aborted by
// serialization conflicts.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy controls how Do treats failures.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Backoff maps the 1-based number of the failed attempt to the wait
	// before the next one.
	Backoff func(attempt int) time.Duration
	// Retryable reports whether an error is worth another attempt.
	Retryable func(err error) bool
}

// LinearBackoff returns a backoff of step×attempt.
func LinearBackoff(step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return step * time.Duration(attempt)
	}
}

// Do runs fn up to p.MaxAttempts times. Non-retryable errors and the error
// of the final attempt propagate unchanged. The backoff sleep honors ctx
// cancellation.
func Do(ctx context.Context, p Policy, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		if attempt >= p.MaxAttempts || p.Retryable == nil || !p.Retryable(err) {
			return err
		}

		wait := time.Duration(0)
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry canceled: %w", ctx.Err())
		case <-timer.C:
		}
	}
}
