package calls

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ivr-platform/pkg/logger"
	"ivr-platform/pkg/utils"
)

const (
	DefaultLookupAttempts = 5
	DefaultLookupDelay    = 200 * time.Millisecond
)

// BundleFinder is the read side of Repository needed by the loader.
type BundleFinder interface {
	FindBundle(ctx context.Context, callSID string) (Bundle, error)
	FindCallWorkspace(ctx context.Context, callSID string) (string, error)
}

// Loader fetches a call bundle, absorbing the race where the first webhook for
// a call arrives before the dialer's insert is visible.
//
// Only ErrCallNotFound is retried. Structural misses and decode errors fail
// immediately.
type Loader struct {
	finder   BundleFinder
	attempts int
	delay    time.Duration
}

func NewLoader(finder BundleFinder, attempts int, delay time.Duration) *Loader {
	if attempts <= 0 {
		attempts = DefaultLookupAttempts
	}
	if delay < 0 {
		delay = DefaultLookupDelay
	}
	return &Loader{finder: finder, attempts: attempts, delay: delay}
}

func (l *Loader) Load(ctx context.Context, callSID string) (Bundle, error) {
	var out Bundle
	err := l.lookup(ctx, callSID, func(ctx context.Context) error {
		b, err := l.finder.FindBundle(ctx, callSID)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return Bundle{}, err
	}
	return out, nil
}

// Owner returns the workspace that owns callSID, with the same retry as Load.
func (l *Loader) Owner(ctx context.Context, callSID string) (string, error) {
	var out string
	err := l.lookup(ctx, callSID, func(ctx context.Context) error {
		id, err := l.finder.FindCallWorkspace(ctx, callSID)
		if err != nil {
			return err
		}
		out = id
		return nil
	})
	return out, err
}

func (l *Loader) lookup(ctx context.Context, callSID string, op func(context.Context) error) error {
	if callSID == "" {
		return fmt.Errorf("%w: empty call sid", ErrCallNotFound)
	}

	res := utils.Retry(ctx, utils.RetryPolicy{
		MaxAttempts: l.attempts,
		Backoff:     utils.ConstantBackoff(l.delay),
		Retryable:   func(err error) bool { return errors.Is(err, ErrCallNotFound) },
	}, op)

	if !res.OK() {
		if res.Outcome == utils.RetryExhausted {
			logger.From(ctx).Warn("call not visible after retries", slog.String("call_sid", callSID), slog.Int("attempts", res.Attempts))
		}
		return res.Err
	}
	if res.Attempts > 1 {
		logger.From(ctx).Debug("call found after retry", slog.String("call_sid", callSID), slog.Int("attempts", res.Attempts))
	}
	return nil
}
