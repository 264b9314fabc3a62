package services

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy is a bounded retry with a fixed backoff between attempts.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 200 * time.Millisecond}

var errRetriesExhausted = errors.New("retries exhausted")

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	return p
}

// retryOnConflict runs fn until it succeeds, fails with a non-conflict error,
// or the attempts run out. On exhaustion the last conflict is joined with
// errRetriesExhausted.
func retryOnConflict(ctx context.Context, policy RetryPolicy, isConflict func(error) bool, fn func(attempt int) error) error {
	policy = policy.normalized()

	var lastErr error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil || !isConflict(lastErr) {
			return lastErr
		}
		if attempt == policy.Attempts {
			break
		}
		if err := sleepContext(ctx, policy.Backoff); err != nil {
			return err
		}
	}
	return errors.Join(errRetriesExhausted, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
