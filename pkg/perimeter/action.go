package perimeter

import (
	"context"
	"fmt"
	"time"

	"github.com/fingate-ai/fingate/pkg/domain"
	"github.com/fingate-ai/fingate/pkg/pdp"
)

// pdpAction maps a portfolio action kind onto the provisioned action
// vocabulary. Trades of any kind mutate the portfolio.
func pdpAction(kind domain.ActionKind) (string, error) {
	switch kind {
	case domain.ActionBuy, domain.ActionSell, domain.ActionRebalance:
		return "update", nil
	case domain.ActionAnalyze:
		return "analyze", nil
	default:
		return "", fmt.Errorf("%w: unknown action kind %q", domain.ErrValidation, kind)
	}
}

// ExternalAccess gates a portfolio action. It is a single synchronous check:
// the action must never execute before the decision is obtained, and the
// decision is never cached; a retried action is re-checked on every attempt.
func (g *Guard) ExternalAccess(ctx context.Context, user domain.UserContext, action domain.PortfolioAction) (domain.PermissionDecision, error) {
	start := time.Now()

	if action.PortfolioID == "" {
		return domain.PermissionDecision{}, fmt.Errorf("%w: portfolio action has no target", domain.ErrValidation)
	}
	pdpAct, err := pdpAction(action.Kind)
	if err != nil {
		return domain.PermissionDecision{}, err
	}
	tier := action.Tier
	if tier == "" {
		tier = domain.TierStandard
	}

	decision, checkErr := g.client.Check(ctx, pdp.CheckRequest{
		Subject:      user,
		Action:       pdpAct,
		ResourceType: "portfolio",
		ResourceAttributes: map[string]string{
			"portfolio_id": action.PortfolioID,
			"value_tier":   string(tier),
		},
		ContextAttributes: map[string]string{
			"action_kind": string(action.Kind),
		},
	})
	g.observe(PerimeterAction, decision, checkErr, start)
	return decision, nil
}
