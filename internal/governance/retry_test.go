package governance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateBackoffGrowsAndCaps(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{
		MaxRetries:        5,
		InitialBackoff:    50 * time.Millisecond,
		MaxBackoff:        200 * time.Millisecond,
		BackoffMultiplier: 2.0,
		Jitter:            false,
	})

	assert.Equal(t, 50*time.Millisecond, policy.CalculateBackoff(0))
	assert.Equal(t, 100*time.Millisecond, policy.CalculateBackoff(1))
	assert.Equal(t, 200*time.Millisecond, policy.CalculateBackoff(2))
	// Capped past this point.
	assert.Equal(t, 200*time.Millisecond, policy.CalculateBackoff(5))
}

func TestCalculateBackoffJitterStaysBounded(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	})

	for i := 0; i < 100; i++ {
		backoff := policy.CalculateBackoff(0)
		assert.GreaterOrEqual(t, backoff, 100*time.Millisecond)
		assert.LessOrEqual(t, backoff, 125*time.Millisecond)
	}
}

func TestExecuteWithRetryStopsOnNonTransient(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond})

	calls := 0
	err := policy.ExecuteWithRetry(context.Background(), func() (bool, error) {
		calls++
		return false, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls, "a non-transient outcome must not be retried")
}

func TestExecuteWithRetryExhaustsBudget(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond})

	transportErr := errors.New("connection refused")
	calls := 0
	err := policy.ExecuteWithRetry(context.Background(), func() (bool, error) {
		calls++
		return true, transportErr
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.ErrorIs(t, err, transportErr, "the underlying fault must stay matchable")
	assert.Equal(t, 3, calls, "initial attempt plus MaxRetries")
}

func TestExecuteWithRetryRecoversMidway(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond})

	calls := 0
	err := policy.ExecuteWithRetry(context.Background(), func() (bool, error) {
		calls++
		if calls < 3 {
			return true, errors.New("timeout")
		}
		return false, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetryHonorsContext(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{MaxRetries: 10, InitialBackoff: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	errCh := make(chan error, 1)
	go func() {
		errCh <- policy.ExecuteWithRetry(ctx, func() (bool, error) {
			calls++
			return true, errors.New("unreachable")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("retry loop did not observe cancellation")
	}
}
