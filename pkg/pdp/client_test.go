package pdp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fingate-ai/fingate/pkg/domain"
)

func testUser() domain.UserContext {
	return domain.NewUserContext("user@example.com", "premium_user", true, domain.ClearanceElevated, nil)
}

func TestHTTPClientAllow(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/allowed", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{"allowed": true, "reason": "premium role"})
	}))
	defer srv.Close()

	client := NewHTTPClient(HTTPClientConfig{Endpoint: srv.URL, Token: "secret"})
	decision, err := client.Check(context.Background(), CheckRequest{
		Subject:            testUser(),
		Action:             "receive",
		ResourceType:       "financial_advice",
		ResourceAttributes: map[string]string{"is_ai_generated": "true"},
	})

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, "premium role", decision.Reason)

	assert.Equal(t, "user@example.com", captured["subject_id"])
	subject := captured["subject_attributes"].(map[string]any)
	assert.Equal(t, "premium_user", subject["role"])
	assert.Equal(t, "elevated", subject["clearance_level"])
	assert.Equal(t, true, subject["ai_advice_opted_in"])
	assert.Equal(t, "receive", captured["action"])
	assert.Equal(t, "financial_advice", captured["resource_type"])
}

func TestHTTPClientDenyIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"allowed": false, "reason": "clearance too low"})
	}))
	defer srv.Close()

	client := NewHTTPClient(HTTPClientConfig{Endpoint: srv.URL})
	decision, err := client.Check(context.Background(), CheckRequest{
		Subject: testUser(), Action: "read", ResourceType: "financial_document",
	})

	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "clearance too low", decision.Reason)
}

func TestHTTPClientFailsClosedOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(HTTPClientConfig{Endpoint: srv.URL})
	decision, err := client.Check(context.Background(), CheckRequest{
		Subject: testUser(), Action: "receive", ResourceType: "financial_advice",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPolicyUnavailable)
	assert.False(t, decision.Allowed, "a decision point fault must deny")
	assert.Equal(t, ReasonServiceUnavailable, decision.Reason)
}

func TestHTTPClientFailsClosedOnUnreachableEndpoint(t *testing.T) {
	client := NewHTTPClient(HTTPClientConfig{Endpoint: "http://127.0.0.1:1", CheckTimeout: 100 * time.Millisecond})
	decision, err := client.Check(context.Background(), CheckRequest{
		Subject: testUser(), Action: "receive", ResourceType: "financial_advice",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPolicyUnavailable)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonServiceUnavailable, decision.Reason)
}

func TestHTTPClientFailsClosedOnTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_ = json.NewEncoder(w).Encode(map[string]any{"allowed": true})
	}))
	defer srv.Close()
	defer close(release)

	client := NewHTTPClient(HTTPClientConfig{Endpoint: srv.URL, CheckTimeout: 50 * time.Millisecond})
	decision, err := client.Check(context.Background(), CheckRequest{
		Subject: testUser(), Action: "receive", ResourceType: "financial_advice",
	})

	require.Error(t, err)
	assert.False(t, decision.Allowed, "a slow decision point must resolve to deny")
}

func TestHTTPClientFailsClosedOnMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := NewHTTPClient(HTTPClientConfig{Endpoint: srv.URL})
	decision, err := client.Check(context.Background(), CheckRequest{
		Subject: testUser(), Action: "receive", ResourceType: "financial_advice",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPolicyUnavailable)
	assert.False(t, decision.Allowed)
}

func TestEvaluatedAttributesRecordInputs(t *testing.T) {
	attrs := evaluatedAttributes(CheckRequest{
		Action:             "read",
		ResourceType:       "financial_document",
		ResourceAttributes: map[string]string{"classification": "confidential"},
		ContextAttributes:  map[string]string{"query_intent": "informational"},
	})

	assert.Equal(t, "read", attrs["action"])
	assert.Equal(t, "financial_document", attrs["resource_type"])
	assert.Equal(t, "confidential", attrs["resource.classification"])
	assert.Equal(t, "informational", attrs["context.query_intent"])
}
