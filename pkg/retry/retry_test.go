package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")
var errFatal = errors.New("fatal")

func policy(max int) Policy {
	return Policy{
		MaxAttempts: max,
		Backoff:     LinearBackoff(time.Millisecond),
		Retryable:   func(err error) bool { return errors.Is(err, errTransient) },
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0

	err := Do(t.Context(), policy(3), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("want 1 call, got %d", calls)
	}
}

func TestDo_RetriesTransientUntilSuccess(t *testing.T) {
	t.Parallel()

	calls := 0

	err := Do(t.Context(), policy(3), func() error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("want 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0

	err := Do(t.Context(), policy(3), func() error {
		calls++
		return errTransient
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("want transient error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("want 3 calls, got %d", calls)
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	t.Parallel()

	calls := 0

	err := Do(t.Context(), policy(3), func() error {
		calls++
		return errFatal
	})
	if !errors.Is(err, errFatal) {
		t.Fatalf("want fatal error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("want 1 call, got %d", calls)
	}
}

func TestDo_BackoffGrowsLinearly(t *testing.T) {
	t.Parallel()

	b := LinearBackoff(25 * time.Millisecond)

	for attempt, want := range map[int]time.Duration{
		1: 25 * time.Millisecond,
		2: 50 * time.Millisecond,
		3: 75 * time.Millisecond,
	} {
		if got := b(attempt); got != want {
			t.Fatalf("attempt %d: want %v, got %v", attempt, want, got)
		}
	}
}

func TestDo_CanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())

	p := Policy{
		MaxAttempts: 5,
		Backoff:     func(int) time.Duration { return time.Hour },
		Retryable:   func(error) bool { return true },
	}

	done := make(chan error, 1)

	go func() {
		done <- Do(ctx, p, func() error { return errTransient })
	}()

	// let the first attempt fail, then cancel the backoff sleep
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("want context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for Do to return after cancel")
	}
}
