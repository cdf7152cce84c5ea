package governance

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is in the open state.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState represents the state of a circuit breaker.
type CircuitBreakerState string

const (
	// StateClosed indicates the circuit is closed and calls are allowed.
	StateClosed CircuitBreakerState = "closed"
	// StateOpen indicates the circuit is open and calls are rejected.
	StateOpen CircuitBreakerState = "open"
	// StateHalfOpen indicates the circuit is testing if the service has recovered.
	StateHalfOpen CircuitBreakerState = "half-open"
)

// CircuitBreakerConfig defines thresholds for circuit breaking.
type CircuitBreakerConfig struct {
	// MaxFailures is the consecutive failure threshold before opening.
	MaxFailures int
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration
	// MaxHalfOpenRequests is the number of test calls allowed in half-open
	// state before forcing a decision (close on success, open on failure).
	MaxHalfOpenRequests int
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures:         5,
		Timeout:             30 * time.Second,
		MaxHalfOpenRequests: 2,
	}
}

// CircuitBreaker implements the circuit breaker pattern for the decision
// point. Failures are transport-level only: a deny decision is a success.
type CircuitBreaker struct {
	mu     sync.Mutex
	state  CircuitBreakerState
	config CircuitBreakerConfig

	consecutiveFailures  int
	consecutiveSuccesses int
	halfOpenRequests     int
	openUntil            time.Time
}

// NewCircuitBreaker creates a circuit breaker with the provided configuration.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxHalfOpenRequests <= 0 {
		config.MaxHalfOpenRequests = 2
	}
	return &CircuitBreaker{state: StateClosed, config: config}
}

// Allow reports whether a call may proceed. In the open state it returns
// ErrCircuitOpen until the timeout elapses, then admits probe calls.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Now().Before(cb.openUntil) {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.halfOpenRequests = 0
		cb.consecutiveSuccesses = 0
		fallthrough
	case StateHalfOpen:
		if cb.halfOpenRequests >= cb.config.MaxHalfOpenRequests {
			return ErrCircuitOpen
		}
		cb.halfOpenRequests++
		return nil
	default:
		return nil
	}
}

// RecordSuccess notes a successful call and may close a half-open circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures = 0
	if cb.state == StateHalfOpen {
		cb.consecutiveSuccesses++
		if cb.consecutiveSuccesses >= cb.config.MaxHalfOpenRequests {
			cb.state = StateClosed
		}
	}
}

// RecordFailure notes a failed call and may open the circuit.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveSuccesses = 0
	cb.consecutiveFailures++

	if cb.state == StateHalfOpen || cb.consecutiveFailures >= cb.config.MaxFailures {
		cb.state = StateOpen
		cb.openUntil = time.Now().Add(cb.config.Timeout)
	}
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
