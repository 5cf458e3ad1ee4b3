package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
)

// sentryEnabled is set once Sentry has been initialised so ShutdownFlush knows
// whether there is anything to drain.
var sentryEnabled atomic.Bool

// New returns a production-friendly structured logger.
// No business logic should depend on logging implementation details.
func New(appEnv string) *slog.Logger {
	return slog.New(jsonHandler(appEnv))
}

// NewWithSentry behaves like New and additionally forwards error records to
// Sentry when dsn is non-empty.
func NewWithSentry(appEnv, dsn, release string) (*slog.Logger, error) {
	h := jsonHandler(appEnv)
	if dsn == "" {
		return slog.New(h), nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      appEnv,
		Release:          release,
		AttachStacktrace: true,
	})
	if err != nil {
		return slog.New(h), fmt.Errorf("sentry init: %w", err)
	}
	sentryEnabled.Store(true)

	return slog.New(slogmulti.Fanout(
		h,
		slogsentry.Option{Level: slog.LevelError}.NewSentryHandler(),
	)), nil
}

func jsonHandler(appEnv string) slog.Handler {
	level := slog.LevelInfo
	if appEnv == "local" || appEnv == "dev" {
		level = slog.LevelDebug
	}
	return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
}

type ctxKey struct{}

// With stores a logger in context.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From gets a logger from context, falling back to slog.Default().
func From(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}

// ShutdownFlush drains buffered Sentry events, bounded by timeout and ctx.
func ShutdownFlush(ctx context.Context, timeout time.Duration) error {
	if !sentryEnabled.Load() {
		return nil
	}
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if !sentry.Flush(timeout) {
		return fmt.Errorf("sentry flush timed out after %s", timeout)
	}
	return nil
}
