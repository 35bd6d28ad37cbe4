package resilience

import (
	"context"
	"fmt"
	"time"
)

// TimeoutConfig bounds one operation's wall-clock time, with an optional
// grace period for the cancelled goroutine to wind down before its result is
// discarded (spec.md §5: "if a retriever does not cooperate within a grace
// period (default 2s), its result is discarded").
type TimeoutConfig struct {
	Timeout     time.Duration
	GracePeriod time.Duration
}

// DefaultRetrieverTimeout matches retriever.timeout_seconds's default.
func DefaultRetrieverTimeout() TimeoutConfig {
	return TimeoutConfig{Timeout: 60 * time.Second, GracePeriod: 2 * time.Second}
}

// DefaultLLMTimeout matches the per-LLM-call default of 120s.
func DefaultLLMTimeout() TimeoutConfig {
	return TimeoutConfig{Timeout: 120 * time.Second, GracePeriod: 2 * time.Second}
}

// ExecuteWithTimeout runs operation in a goroutine and returns its result,
// or a timeout error if it doesn't finish within Timeout (+GracePeriod).
// The goroutine is not killed on timeout; operation must itself observe
// ctx.Done() to stop promptly.
func ExecuteWithTimeout[T any](ctx context.Context, config TimeoutConfig, operation func(context.Context) (T, error)) (T, error) {
	var zero T

	timeoutCtx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	resultCh := make(chan struct {
		value T
		err   error
	}, 1)

	go func() {
		value, err := operation(timeoutCtx)
		resultCh <- struct {
			value T
			err   error
		}{value, err}
	}()

	select {
	case res := <-resultCh:
		return res.value, res.err
	case <-timeoutCtx.Done():
		if config.GracePeriod > 0 {
			select {
			case res := <-resultCh:
				return res.value, res.err
			case <-time.After(config.GracePeriod):
				return zero, fmt.Errorf("operation timed out after %v (+%v grace): %w",
					config.Timeout, config.GracePeriod, context.DeadlineExceeded)
			}
		}
		return zero, fmt.Errorf("operation timed out after %v: %w", config.Timeout, context.DeadlineExceeded)
	}
}
