package domain

import "errors"

// Common domain errors
var (
	// ErrAuthorizationDenied marks the expected outcome of a gate denial. It
	// is normal control flow: the orchestrator converts it into a refusal.
	ErrAuthorizationDenied = errors.New("authorization denied")
	// ErrPolicyUnavailable marks a network, timeout, or malformed-response
	// failure from the decision point. Converted to a deny, never fail-open.
	ErrPolicyUnavailable = errors.New("policy decision point unavailable")
	// ErrValidation marks malformed input reaching a gate boundary. This is
	// the only class that aborts request processing outright.
	ErrValidation = errors.New("validation failed")
	// ErrStateTransition marks an illegal pipeline state transition.
	ErrStateTransition = errors.New("invalid pipeline state transition")
	// ErrToolNotRegistered is returned when the model requests an unknown tool.
	ErrToolNotRegistered = errors.New("tool not registered")
	// ErrMissingCredential is returned when a remote decision point is
	// configured without an API credential.
	ErrMissingCredential = errors.New("decision point credential missing")
)

// PipelineError wraps errors with additional request context.
type PipelineError struct {
	Err     error
	Code    string
	Message string
	Details map[string]any
}

func (e *PipelineError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
