package retry

import (
	"context"
	"log/slog"
	"time"

	"booking-engine/internal/pkg/errs"

	"github.com/cenkalti/backoff/v4"
)

// Policy is the single retry policy for transient store and gateway failures.
// Anything not marked transient is returned on the first attempt.
type Policy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      uint64
}

func DefaultPolicy() Policy {
	return Policy{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxRetries:      3,
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)
}

func Do(ctx context.Context, p Policy, logger *slog.Logger, op func(ctx context.Context) error) error {
	_, err := DoValue(ctx, p, logger, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func DoValue[T any](ctx context.Context, p Policy, logger *slog.Logger, op func(ctx context.Context) (T, error)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err != nil && !errs.IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}
	notify := func(err error, wait time.Duration) {
		if logger != nil {
			logger.Warn("retrying after transient error",
				slog.Int("attempt", attempt),
				slog.Int64("wait_ms", wait.Milliseconds()),
				slog.String("error", err.Error()))
		}
	}
	return backoff.RetryNotifyWithData(operation, p.backOff(ctx), notify)
}
