package externalapi

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy controls how rate-limited calls are retried.
// Only ErrRateLimited is retried; every other failure is returned immediately.
type RetryPolicy struct {
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // delay before the first retry, doubled each time
	MaxDelay   time.Duration // 0 means uncapped

	// OnRetry is called before each retry sleep in place of the default WARN log.
	// attempt is the number of the attempt about to be made (2 for the first retry).
	OnRetry func(op string, attempt int, delay time.Duration, err error)
}

// DefaultRetryPolicy returns 3 retries (4 attempts in total) spaced 2s, 4s and 8s apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   8 * time.Second,
	}
}

// exponential builds the delay sequence without jitter, so retries are predictable.
func (p RetryPolicy) exponential() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval <= 0 {
		b.MaxInterval = time.Duration(math.MaxInt64)
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Backoff returns the delay before the n-th retry (1-based).
func (p RetryPolicy) Backoff(n int) time.Duration {
	b := p.exponential()
	d := b.NextBackOff()
	for i := 1; i < n; i++ {
		d = b.NextBackOff()
	}
	return d
}

// Do runs fn and retries it while it fails with ErrRateLimited, up to
// p.MaxRetries times. The last error is returned once retries are exhausted.
func Do[T any](ctx context.Context, p RetryPolicy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var lastErr error
	attempt := 1

	operation := func() (T, error) {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !errors.Is(err, ErrRateLimited) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}
	notify := func(err error, delay time.Duration) {
		attempt++
		if p.OnRetry != nil {
			p.OnRetry(op, attempt, delay, err)
			return
		}
		slog.Warn("upstream rate limited, retrying", "op", op, "attempt", attempt, "delay", delay, "error", err)
	}

	retries := uint64(max(p.MaxRetries, 0))
	b := backoff.WithContext(backoff.WithMaxRetries(p.exponential(), retries), ctx)
	v, err := backoff.RetryNotifyWithData(operation, b, notify)
	if err == nil {
		return v, nil
	}
	var zero T
	// backoff reports only ctx.Err() on cancellation; keep the last failure too.
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) && lastErr != nil && !errors.Is(lastErr, ctxErr) {
		return zero, errors.Join(lastErr, err)
	}
	return zero, err
}
