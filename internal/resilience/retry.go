package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig configures exponential backoff retry of a fallible operation.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxElapsedTime  time.Duration
	RetryIfFn       func(error) bool
}

// DefaultRetryConfig retries up to 3 times on any error.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
		MaxElapsedTime:  30 * time.Second,
		RetryIfFn:       func(error) bool { return true },
	}
}

// Retry runs operation with exponential backoff until it succeeds, the
// retry budget is exhausted, or ctx is cancelled.
func Retry(ctx context.Context, config RetryConfig, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = config.InitialInterval
	b.MaxInterval = config.MaxInterval
	b.Multiplier = config.Multiplier
	b.MaxElapsedTime = config.MaxElapsedTime

	var withRetries backoff.BackOff = b
	if config.MaxRetries > 0 {
		withRetries = backoff.WithMaxRetries(b, uint64(config.MaxRetries))
	}
	ctxBackoff := backoff.WithContext(withRetries, ctx)

	return backoff.Retry(func() error {
		err := operation()
		if err != nil && config.RetryIfFn != nil && !config.RetryIfFn(err) {
			return backoff.Permanent(err)
		}
		return err
	}, ctxBackoff)
}

// RetryWithResult is Retry for operations that produce a value.
func RetryWithResult[T any](ctx context.Context, config RetryConfig, operation func() (T, error)) (T, error) {
	var result T
	err := Retry(ctx, config, func() error {
		v, err := operation()
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}
