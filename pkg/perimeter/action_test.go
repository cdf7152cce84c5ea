package perimeter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fingate-ai/fingate/pkg/domain"
)

func TestExternalAccessMapsTradeKindsToUpdate(t *testing.T) {
	for _, kind := range []domain.ActionKind{domain.ActionBuy, domain.ActionSell, domain.ActionRebalance} {
		t.Run(string(kind), func(t *testing.T) {
			client := allowAll()
			guard := NewGuard(client, nil, nil)

			decision, err := guard.ExternalAccess(context.Background(), optedInUser(), domain.PortfolioAction{
				Kind: kind, PortfolioID: "portfolio-main", Tier: domain.TierStandard,
			})

			require.NoError(t, err)
			assert.True(t, decision.Allowed)

			req := client.recorded()[0]
			assert.Equal(t, "update", req.Action)
			assert.Equal(t, "portfolio", req.ResourceType)
			assert.Equal(t, string(kind), req.ContextAttributes["action_kind"])
		})
	}
}

func TestExternalAccessAnalyzeKeepsItsOwnAction(t *testing.T) {
	client := allowAll()
	guard := NewGuard(client, nil, nil)

	_, err := guard.ExternalAccess(context.Background(), optedInUser(), domain.PortfolioAction{
		Kind: domain.ActionAnalyze, PortfolioID: "portfolio-main",
	})

	require.NoError(t, err)
	assert.Equal(t, "analyze", client.recorded()[0].Action)
}

func TestExternalAccessDefaultsTier(t *testing.T) {
	client := allowAll()
	guard := NewGuard(client, nil, nil)

	_, err := guard.ExternalAccess(context.Background(), optedInUser(), domain.PortfolioAction{
		Kind: domain.ActionBuy, PortfolioID: "portfolio-main",
	})

	require.NoError(t, err)
	assert.Equal(t, "standard", client.recorded()[0].ResourceAttributes["value_tier"])
}

func TestExternalAccessRejectsMissingPortfolio(t *testing.T) {
	client := allowAll()
	guard := NewGuard(client, nil, nil)

	_, err := guard.ExternalAccess(context.Background(), optedInUser(), domain.PortfolioAction{
		Kind: domain.ActionBuy,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, client.callCount())
}

func TestExternalAccessRejectsUnknownKind(t *testing.T) {
	client := allowAll()
	guard := NewGuard(client, nil, nil)

	_, err := guard.ExternalAccess(context.Background(), optedInUser(), domain.PortfolioAction{
		Kind: "liquidate", PortfolioID: "portfolio-main",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestExternalAccessDenyIsFinal(t *testing.T) {
	client := denyAll("premium tier requires elevated clearance")
	guard := NewGuard(client, nil, nil)

	decision, err := guard.ExternalAccess(context.Background(), optedInUser(), domain.PortfolioAction{
		Kind: domain.ActionRebalance, PortfolioID: "portfolio-main", Tier: domain.TierPremium,
	})

	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "premium tier requires elevated clearance", decision.Reason)
}

func TestExternalAccessRecheckedOnRetry(t *testing.T) {
	client := allowAll()
	guard := NewGuard(client, nil, nil)

	action := domain.PortfolioAction{Kind: domain.ActionBuy, PortfolioID: "portfolio-main"}
	for i := 0; i < 3; i++ {
		_, err := guard.ExternalAccess(context.Background(), optedInUser(), action)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, client.callCount(), "decisions are never cached across attempts")
}
