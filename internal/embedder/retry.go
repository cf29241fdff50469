package embedder

import (
	"context"
	"time"
)

// RetryConfig configures exponential backoff for provider calls.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64

	// Sleep is injectable so tests can observe the backoff schedule without
	// real delays. Nil uses a context-aware time.After wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryConfig returns the standard API retry schedule.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Duration(initialBackoffMs) * time.Millisecond,
		MaxDelay:    time.Duration(maxBackoffMs) * time.Millisecond,
		Multiplier:  backoffMultiplier,
	}
}

func realSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// retryWithBackoff runs fn up to MaxAttempts times with a deterministic
// backoff schedule. Retry stops immediately on context cancellation.
func retryWithBackoff[T any](ctx context.Context, config RetryConfig, fn func() (T, error)) (T, error) {
	var lastErr error
	var zero T

	sleep := config.Sleep
	if sleep == nil {
		sleep = realSleep
	}

	backoff := config.BaseDelay
	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		if attempt < config.MaxAttempts-1 {
			if err := sleep(ctx, backoff); err != nil {
				return zero, err
			}
			backoff = time.Duration(float64(backoff) * config.Multiplier)
			if backoff > config.MaxDelay {
				backoff = config.MaxDelay
			}
		}
	}

	return zero, lastErr
}
