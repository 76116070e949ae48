// Package retry runs fallible external calls with a fixed attempt budget and
// exponential backoff between attempts.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"
)

// Policy describes how many times to try and how long to wait in between.
// The delay before attempt n+1 (n starting at 0) is BaseDelay * 2^n, and no
// delay follows the final attempt.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	// AttemptTimeout bounds a single attempt. Zero means no bound.
	AttemptTimeout time.Duration
	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnAttempt is called after every attempt with its outcome.
	OnAttempt func(attempt int, err error)
}

func DefaultPolicy() Policy {
	return Policy{
		Attempts:  3,
		BaseDelay: time.Second,
		Sleep:     SleepContext,
	}
}

// Backoff returns the wait before the attempt following attempt n.
func (p Policy) Backoff(n int) time.Duration {
	return time.Duration(math.Pow(2, float64(n))) * p.BaseDelay
}

// Do calls fn until it succeeds or the attempt budget is spent. The error of
// the last attempt is returned unchanged.
func Do[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.Sleep == nil {
		p.Sleep = SleepContext
	}

	var lastErr error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		result, err := runAttempt(ctx, p.AttemptTimeout, fn)
		if p.OnAttempt != nil {
			p.OnAttempt(attempt, err)
		}
		if err == nil {
			return result, nil
		}
		lastErr = err
		slog.Warn("attempt failed", "op", op, "attempt", attempt+1, "max_attempts", p.Attempts, "error", err)

		if attempt < p.Attempts-1 {
			if sleepErr := p.Sleep(ctx, p.Backoff(attempt)); sleepErr != nil {
				return zero, errors.Join(lastErr, sleepErr)
			}
		}
	}
	return zero, lastErr
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}

func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
