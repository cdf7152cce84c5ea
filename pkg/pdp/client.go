package pdp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fingate-ai/fingate/pkg/domain"
)

const (
	// DefaultEndpoint is the documented local development decision point.
	DefaultEndpoint = "http://localhost:7766"
	// DefaultCheckTimeout bounds a single decision call.
	DefaultCheckTimeout = 3 * time.Second

	// ReasonServiceUnavailable marks a fail-closed deny caused by the
	// decision point being unreachable or misbehaving.
	ReasonServiceUnavailable = "service_unavailable"

	allowedPath = "/allowed"
)

// CheckRequest describes a single authorization evaluation.
type CheckRequest struct {
	// Subject is the user the check is evaluated for.
	Subject domain.UserContext
	// Action is the operation being performed (e.g. "receive", "read").
	Action string
	// ResourceType is the resource category (e.g. "financial_document").
	ResourceType string
	// ResourceAttributes carry resource-specific evaluation inputs.
	ResourceAttributes map[string]string
	// ContextAttributes carry request-scoped evaluation inputs.
	ContextAttributes map[string]string
}

// Client evaluates authorization decisions. Implementations must be safe for
// concurrent use and must fail closed: when err is non-nil the returned
// decision is already a deny with reason ReasonServiceUnavailable, so callers
// may treat the decision as authoritative and the error as diagnostics.
type Client interface {
	Check(ctx context.Context, req CheckRequest) (domain.PermissionDecision, error)
}

// HTTPClient talks to a remote decision point over its /allowed endpoint.
// It holds no per-request state; one instance serves all in-flight requests.
type HTTPClient struct {
	endpoint     string
	token        string
	checkTimeout time.Duration
	httpClient   *http.Client
}

// HTTPClientConfig configures an HTTPClient.
type HTTPClientConfig struct {
	// Endpoint is the decision point base URL. Defaults to DefaultEndpoint.
	Endpoint string
	// Token is the API credential sent as a bearer token.
	Token string
	// CheckTimeout bounds each decision call. Defaults to DefaultCheckTimeout.
	CheckTimeout time.Duration
	// Transport overrides the HTTP transport, primarily for tests.
	Transport http.RoundTripper
}

// NewHTTPClient constructs a decision point client.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.CheckTimeout
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &HTTPClient{
		endpoint:     endpoint,
		token:        cfg.Token,
		checkTimeout: timeout,
		httpClient:   &http.Client{Transport: transport},
	}
}

// checkPayload is the wire request for a decision evaluation.
type checkPayload struct {
	SubjectID          string            `json:"subject_id"`
	SubjectAttributes  subjectAttributes `json:"subject_attributes"`
	Action             string            `json:"action"`
	ResourceType       string            `json:"resource_type"`
	ResourceAttributes map[string]string `json:"resource_attributes"`
	ContextAttributes  map[string]string `json:"context_attributes"`
}

type subjectAttributes struct {
	Role            string `json:"role"`
	ClearanceLevel  string `json:"clearance_level"`
	AIAdviceOptedIn bool   `json:"ai_advice_opted_in"`
}

// checkResponse is the wire response. Only Allowed is required; everything
// else is optional diagnostics.
type checkResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Check performs one authorization evaluation against the remote decision
// point. Any transport or decoding failure resolves to a deny.
func (c *HTTPClient) Check(ctx context.Context, req CheckRequest) (domain.PermissionDecision, error) {
	ctx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	payload := checkPayload{
		SubjectID: req.Subject.ID,
		SubjectAttributes: subjectAttributes{
			Role:            req.Subject.Role,
			ClearanceLevel:  string(req.Subject.Clearance),
			AIAdviceOptedIn: req.Subject.OptedInForAIAdvice,
		},
		Action:             req.Action,
		ResourceType:       req.ResourceType,
		ResourceAttributes: orEmpty(req.ResourceAttributes),
		ContextAttributes:  orEmpty(req.ContextAttributes),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return failClosed(req), fmt.Errorf("%w: encode check request: %v", domain.ErrPolicyUnavailable, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+allowedPath, bytes.NewReader(body))
	if err != nil {
		return failClosed(req), fmt.Errorf("%w: build check request: %v", domain.ErrPolicyUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return failClosed(req), fmt.Errorf("%w: %v", domain.ErrPolicyUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return failClosed(req), fmt.Errorf("%w: decision point returned status %d", domain.ErrPolicyUnavailable, resp.StatusCode)
	}

	var decoded checkResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil {
		return failClosed(req), fmt.Errorf("%w: decode check response: %v", domain.ErrPolicyUnavailable, err)
	}

	reason := decoded.Reason
	if reason == "" {
		if decoded.Allowed {
			reason = "allowed by policy"
		} else {
			reason = "denied by policy"
		}
	}

	return domain.PermissionDecision{
		Allowed:             decoded.Allowed,
		Reason:              reason,
		AttributesEvaluated: evaluatedAttributes(req),
	}, nil
}

// failClosed builds the deny decision used for every transport-level fault.
func failClosed(req CheckRequest) domain.PermissionDecision {
	return domain.Deny(ReasonServiceUnavailable, evaluatedAttributes(req))
}

// evaluatedAttributes records the inputs a decision was evaluated against so
// denials can be explained without a second call.
func evaluatedAttributes(req CheckRequest) map[string]string {
	attrs := map[string]string{
		"action":        req.Action,
		"resource_type": req.ResourceType,
	}
	for k, v := range req.ResourceAttributes {
		attrs["resource."+k] = v
	}
	for k, v := range req.ContextAttributes {
		attrs["context."+k] = v
	}
	return attrs
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
