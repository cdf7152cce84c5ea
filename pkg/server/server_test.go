package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fingate-ai/fingate/pkg/agent"
	"github.com/fingate-ai/fingate/pkg/domain"
	"github.com/fingate-ai/fingate/pkg/knowledge"
	"github.com/fingate-ai/fingate/pkg/pdp"
	"github.com/fingate-ai/fingate/pkg/perimeter"
	"github.com/fingate-ai/fingate/pkg/telemetry"
)

type policyFunc func(pdp.CheckRequest) (domain.PermissionDecision, error)

func (f policyFunc) Check(_ context.Context, req pdp.CheckRequest) (domain.PermissionDecision, error) {
	return f(req)
}

func allowAllPolicy() pdp.Client {
	return policyFunc(func(pdp.CheckRequest) (domain.PermissionDecision, error) {
		return domain.Allow("allowed by policy", nil), nil
	})
}

func newTestServer(t *testing.T, policy pdp.Client) *Server {
	t.Helper()
	metrics := telemetry.NewMetrics()
	guard := perimeter.NewGuard(policy, nil, metrics)
	orch := agent.NewOrchestrator(agent.NewScriptedModel(), guard, knowledge.NewSeededStore(), nil, nil, metrics)
	return New(":0", orch, nil, nil, metrics)
}

func postQuery(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/queries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestQueryEndpointDeliversResponse(t *testing.T) {
	srv := newTestServer(t, allowAllPolicy())

	rec := postQuery(t, srv, `{"user_id": "user@example.com", "query": "Should I invest in index funds?"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		RequestID string `json:"request_id"`
		State     string `json:"state"`
		Response  struct {
			Text       string `json:"text"`
			Disclaimer string `json:"disclaimer"`
		} `json:"response"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "delivered", resp.State)
	assert.NotEmpty(t, resp.RequestID)
	assert.NotEmpty(t, resp.Response.Disclaimer)
}

func TestQueryEndpointReportsRejection(t *testing.T) {
	srv := newTestServer(t, allowAllPolicy())

	rec := postQuery(t, srv, `{"user_id": "restricted@example.com", "query": "Should I invest in index funds?"}`)

	require.Equal(t, http.StatusOK, rec.Code, "a policy rejection is a successful HTTP exchange")

	var resp struct {
		State         string `json:"state"`
		RejectedBy    string `json:"rejected_by"`
		RefusalReason string `json:"refusal_reason"`
		Response      struct {
			Text string `json:"text"`
		} `json:"response"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "rejected", resp.State)
	assert.Equal(t, "prompt_filter", resp.RejectedBy)
	assert.Equal(t, "ai_advice_opt_in_required", resp.RefusalReason)
	assert.Equal(t, perimeter.RefusalMessage, resp.Response.Text)
}

func TestQueryEndpointRejectsMalformedBody(t *testing.T) {
	srv := newTestServer(t, allowAllPolicy())

	rec := postQuery(t, srv, `{"user_id":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryEndpointRejectsUnknownUser(t *testing.T) {
	srv := newTestServer(t, allowAllPolicy())

	rec := postQuery(t, srv, `{"user_id": "nobody@example.com", "query": "What is a bond?"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryEndpointRequiresUserID(t *testing.T) {
	srv := newTestServer(t, allowAllPolicy())

	rec := postQuery(t, srv, `{"query": "What is a bond?"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMemoryDirectoryReplace(t *testing.T) {
	dir := NewSeededDirectory()

	_, ok := dir.Resolve("user@example.com")
	require.True(t, ok)

	dir.Replace([]domain.UserContext{
		domain.NewUserContext("analyst@example.com", "premium_user", true, domain.ClearanceElevated, nil),
	})

	_, ok = dir.Resolve("user@example.com")
	assert.False(t, ok)
	user, ok := dir.Resolve("analyst@example.com")
	require.True(t, ok)
	assert.Equal(t, "premium_user", user.Role)
}

func TestQueryEndpointRejectsEmptyQuery(t *testing.T) {
	srv := newTestServer(t, allowAllPolicy())

	rec := postQuery(t, srv, `{"user_id": "user@example.com", "query": ""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, allowAllPolicy())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, allowAllPolicy())

	// Generate some traffic first.
	postQuery(t, srv, `{"user_id": "user@example.com", "query": "What is a bond?"}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fingate_checks_total")
}
