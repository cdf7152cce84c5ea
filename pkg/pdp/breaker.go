package pdp

import (
	"context"
	"fmt"

	"github.com/fingate-ai/fingate/internal/governance"
	"github.com/fingate-ai/fingate/pkg/domain"
)

// BreakerClient decorates a Client with a circuit breaker. While the circuit
// is open every check resolves to a fail-closed deny without touching the
// network, which keeps a flapping decision point from adding latency to an
// already-denied pipeline.
type BreakerClient struct {
	inner   Client
	breaker *governance.CircuitBreaker
}

// WithBreaker wraps client with the supplied circuit breaker configuration.
func WithBreaker(client Client, cfg governance.CircuitBreakerConfig) *BreakerClient {
	return &BreakerClient{
		inner:   client,
		breaker: governance.NewCircuitBreaker(cfg),
	}
}

// Check implements Client. Deny decisions are successes from the breaker's
// point of view; only transport faults count as failures.
func (c *BreakerClient) Check(ctx context.Context, req CheckRequest) (domain.PermissionDecision, error) {
	if err := c.breaker.Allow(); err != nil {
		return failClosed(req), fmt.Errorf("%w: %v", domain.ErrPolicyUnavailable, err)
	}

	decision, err := c.inner.Check(ctx, req)
	if err != nil {
		c.breaker.RecordFailure()
		return decision, err
	}

	c.breaker.RecordSuccess()
	return decision, nil
}

// State exposes the breaker state for operational logging.
func (c *BreakerClient) State() governance.CircuitBreakerState {
	return c.breaker.State()
}
