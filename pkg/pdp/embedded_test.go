package pdp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fingate-ai/fingate/pkg/domain"
)

func newTestEngine(t *testing.T) *EmbeddedEngine {
	t.Helper()
	engine, err := NewEmbeddedEngine(context.Background(), EmbeddedOptions{})
	require.NoError(t, err)
	return engine
}

func premiumUser(optedIn bool, clearance domain.ClearanceLevel) domain.UserContext {
	return domain.NewUserContext("user@example.com", "premium_user", optedIn, clearance, nil)
}

func restrictedUser() domain.UserContext {
	return domain.NewUserContext("restricted@example.com", "restricted_user", false, domain.ClearanceStandard, nil)
}

func TestEmbeddedEngineAdviceRequiresOptIn(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	decision, err := engine.Check(ctx, CheckRequest{
		Subject: premiumUser(true, domain.ClearanceStandard),
		Action:  "receive", ResourceType: "financial_advice",
	})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	decision, err = engine.Check(ctx, CheckRequest{
		Subject: premiumUser(false, domain.ClearanceStandard),
		Action:  "receive", ResourceType: "financial_advice",
	})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)

	decision, err = engine.Check(ctx, CheckRequest{
		Subject: restrictedUser(),
		Action:  "receive", ResourceType: "financial_advice",
	})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestEmbeddedEngineDocumentClearance(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name           string
		subject        domain.UserContext
		classification string
		want           bool
	}{
		{"public doc, standard clearance", premiumUser(true, domain.ClearanceStandard), "public", true},
		{"confidential doc, standard clearance", premiumUser(true, domain.ClearanceStandard), "confidential", false},
		{"confidential doc, elevated clearance", premiumUser(true, domain.ClearanceElevated), "confidential", true},
		{"public doc, restricted role", restrictedUser(), "public", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := engine.Check(ctx, CheckRequest{
				Subject:            tt.subject,
				Action:             "read",
				ResourceType:       "financial_document",
				ResourceAttributes: map[string]string{"classification": tt.classification},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, decision.Allowed)
		})
	}
}

func TestEmbeddedEnginePortfolioTiers(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		subject domain.UserContext
		action  string
		tier    string
		want    bool
	}{
		{"premium user analyzes", premiumUser(true, domain.ClearanceStandard), "analyze", "standard", true},
		{"premium user reads", premiumUser(true, domain.ClearanceStandard), "read", "standard", true},
		{"standard tier update", premiumUser(true, domain.ClearanceStandard), "update", "standard", true},
		{"premium tier update needs clearance", premiumUser(true, domain.ClearanceStandard), "update", "premium", false},
		{"premium tier update with clearance", premiumUser(true, domain.ClearanceElevated), "update", "premium", true},
		{"restricted user update", restrictedUser(), "update", "standard", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := engine.Check(ctx, CheckRequest{
				Subject:            tt.subject,
				Action:             tt.action,
				ResourceType:       "portfolio",
				ResourceAttributes: map[string]string{"value_tier": tt.tier},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, decision.Allowed)
		})
	}
}

func TestEmbeddedEngineResponseEnforcement(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	// Opted-in users may receive advice-bearing responses.
	decision, err := engine.Check(ctx, CheckRequest{
		Subject: premiumUser(true, domain.ClearanceStandard),
		Action:  "requires_disclaimer", ResourceType: "financial_response",
		ContextAttributes: map[string]string{"contains_advice": "true"},
	})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	// Advice-free responses pass regardless of opt-in.
	decision, err = engine.Check(ctx, CheckRequest{
		Subject: premiumUser(false, domain.ClearanceStandard),
		Action:  "requires_disclaimer", ResourceType: "financial_response",
		ContextAttributes: map[string]string{"contains_advice": "false"},
	})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	// Advice-bearing responses to non-opted-in users are stopped.
	decision, err = engine.Check(ctx, CheckRequest{
		Subject: premiumUser(false, domain.ClearanceStandard),
		Action:  "requires_disclaimer", ResourceType: "financial_response",
		ContextAttributes: map[string]string{"contains_advice": "true"},
	})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestEmbeddedEngineUnknownResourceDenied(t *testing.T) {
	engine := newTestEngine(t)

	decision, err := engine.Check(context.Background(), CheckRequest{
		Subject: premiumUser(true, domain.ClearanceElevated),
		Action:  "delete", ResourceType: "something_else",
	})
	require.NoError(t, err)
	assert.False(t, decision.Allowed, "unknown resources fall through to the default deny")
}

func TestEmbeddedEngineReloadRejectsBrokenModule(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	err := engine.Reload(ctx, map[string]string{"broken.rego": "package fingate.authz\n\nallow if {"})
	require.Error(t, err)

	// The previous policy set stays active after a failed reload.
	decision, err := engine.Check(ctx, CheckRequest{
		Subject: premiumUser(true, domain.ClearanceStandard),
		Action:  "receive", ResourceType: "financial_advice",
	})
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestEmbeddedEngineReloadSwapsPolicy(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	denyAll := `package fingate.authz

default allow := false

decision := {"allowed": allow, "reason": "locked down"}
`
	require.NoError(t, engine.Reload(ctx, map[string]string{"deny.rego": denyAll}))

	decision, err := engine.Check(ctx, CheckRequest{
		Subject: premiumUser(true, domain.ClearanceElevated),
		Action:  "receive", ResourceType: "financial_advice",
	})
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "locked down", decision.Reason)
}
