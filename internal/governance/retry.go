// Package governance provides resilience primitives (bounded retry, circuit
// breaking) used by decorators around the policy decision-point client.
package governance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

var (
	// ErrMaxRetriesExceeded is returned when all retry attempts have been exhausted.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// RetryConfig defines retry behavior for decision-point calls.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (0 = no retries).
	MaxRetries int
	// InitialBackoff is the initial delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff is the maximum delay between retries.
	MaxBackoff time.Duration
	// BackoffMultiplier is the factor by which backoff increases.
	BackoffMultiplier float64
	// Jitter adds randomness to backoff to prevent thundering herd.
	Jitter bool
}

// DefaultRetryConfig returns sensible defaults for retry behavior.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        2,
		InitialBackoff:    50 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// RetryPolicy determines whether and when an attempt should be retried.
type RetryPolicy struct {
	config RetryConfig
}

// NewRetryPolicy creates a retry policy with the given configuration.
func NewRetryPolicy(config RetryConfig) *RetryPolicy {
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = 50 * time.Millisecond
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 2 * time.Second
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = 2.0
	}
	return &RetryPolicy{config: config}
}

// Config returns a copy of the current retry configuration.
func (rp *RetryPolicy) Config() RetryConfig {
	return rp.config
}

// CalculateBackoff returns the delay before the next retry attempt.
func (rp *RetryPolicy) CalculateBackoff(attempt int) time.Duration {
	backoff := time.Duration(float64(rp.config.InitialBackoff) * math.Pow(rp.config.BackoffMultiplier, float64(attempt)))

	if backoff > rp.config.MaxBackoff {
		backoff = rp.config.MaxBackoff
	}

	if rp.config.Jitter {
		// Up to 25% extra, non-cryptographic randomness is fine for jitter.
		jitter := time.Duration(rand.Int63n(int64(backoff/4) + 1))
		backoff += jitter
	}

	return backoff
}

// ExecuteWithRetry runs fn until it reports a non-transient outcome or the
// attempt budget is spent. fn returns (transient, err): transient=true means
// the attempt failed in a way worth retrying (e.g. decision point
// unreachable); a clean allow or deny is never transient.
func (rp *RetryPolicy) ExecuteWithRetry(ctx context.Context, fn func() (bool, error)) error {
	var lastErr error

	for attempt := 0; attempt <= rp.config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		transient, err := fn()
		lastErr = err
		if !transient {
			return err
		}

		if attempt < rp.config.MaxRetries {
			backoff := rp.CalculateBackoff(attempt)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	if lastErr != nil {
		// Both sentinels stay in the chain so callers can still match the
		// underlying fault with errors.Is.
		return fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, lastErr)
	}
	return ErrMaxRetriesExceeded
}
