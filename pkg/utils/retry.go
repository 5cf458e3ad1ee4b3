package utils

import (
	"context"
	"errors"
	"time"
)

// Backoff returns the delay to wait after the given failed attempt (1-based).
type Backoff func(attempt int) time.Duration

// ConstantBackoff waits the same delay between every attempt.
func ConstantBackoff(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// ExponentialBackoff doubles the delay after each attempt, starting at initial.
func ExponentialBackoff(initial time.Duration) Backoff {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return initial << (attempt - 1)
	}
}

// RetryPolicy declares how an operation is retried.
// Retryable nil means every error is retried.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     Backoff
	Retryable   func(error) bool
}

type RetryOutcome int

const (
	RetrySucceeded RetryOutcome = iota + 1
	// RetryExhausted means every attempt failed with a retryable error.
	RetryExhausted
	// RetryAborted means a non-retryable error or context cancellation stopped retrying.
	RetryAborted
)

// RetryResult is the tagged outcome of Retry. Err is the last error seen.
type RetryResult struct {
	Outcome  RetryOutcome
	Attempts int
	Err      error
}

func (r RetryResult) OK() bool { return r.Outcome == RetrySucceeded }

// Retry runs op until it succeeds, returns a non-retryable error, the context
// ends, or MaxAttempts is reached. It sleeps between attempts and never after
// the last one.
func Retry(ctx context.Context, p RetryPolicy, op func(ctx context.Context) error) RetryResult {
	limit := p.MaxAttempts
	if limit <= 0 {
		limit = 1
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = ConstantBackoff(0)
	}

	var lastErr error
	for attempt := 1; attempt <= limit; attempt++ {
		err := op(ctx)
		if err == nil {
			return RetryResult{Outcome: RetrySucceeded, Attempts: attempt}
		}
		lastErr = err

		if p.Retryable != nil && !p.Retryable(err) {
			return RetryResult{Outcome: RetryAborted, Attempts: attempt, Err: err}
		}
		if attempt == limit {
			break
		}

		if err := sleepCtx(ctx, backoff(attempt)); err != nil {
			return RetryResult{Outcome: RetryAborted, Attempts: attempt, Err: errors.Join(lastErr, err)}
		}
	}
	return RetryResult{Outcome: RetryExhausted, Attempts: limit, Err: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
