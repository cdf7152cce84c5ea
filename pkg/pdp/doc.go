// Package pdp provides clients for the policy decision point that backs the
// perimeter gates.
//
// Every client is fail-closed: a network error, timeout, or malformed
// response resolves to a deny decision with reason "service_unavailable",
// never an allow. Clients hold no per-request mutable state and are safe for
// concurrent fan-out across document checks and in-flight requests.
//
// The HTTPClient talks to a remote decision point; EmbeddedEngine evaluates
// Rego modules in-process for local development and tests. Decorators
// (WithRetry, WithBreaker) wrap any Client without changing callers.
package pdp
