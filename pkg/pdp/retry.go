package pdp

import (
	"context"

	"github.com/fingate-ai/fingate/internal/governance"
	"github.com/fingate-ai/fingate/pkg/domain"
)

// RetryClient decorates a Client with bounded retries. Only transport-level
// faults are retried; a clean allow or deny is returned immediately. The
// final outcome remains fail-closed when the budget is exhausted.
type RetryClient struct {
	inner  Client
	policy *governance.RetryPolicy
}

// WithRetry wraps client with the supplied retry configuration.
func WithRetry(client Client, cfg governance.RetryConfig) *RetryClient {
	return &RetryClient{
		inner:  client,
		policy: governance.NewRetryPolicy(cfg),
	}
}

// Check implements Client.
func (c *RetryClient) Check(ctx context.Context, req CheckRequest) (domain.PermissionDecision, error) {
	var (
		decision domain.PermissionDecision
		lastErr  error
	)

	err := c.policy.ExecuteWithRetry(ctx, func() (bool, error) {
		decision, lastErr = c.inner.Check(ctx, req)
		return lastErr != nil, lastErr
	})
	if err != nil {
		if lastErr == nil {
			// Context cancellation before the first attempt completed.
			return failClosed(req), err
		}
		return decision, err
	}
	return decision, nil
}
