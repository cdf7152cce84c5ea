package perimeter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fingate-ai/fingate/pkg/domain"
	"github.com/fingate-ai/fingate/pkg/pdp"
)

// PromptFilter is the first and cheapest gate. It runs before any model
// invocation: a denied caller never triggers inference and never observes
// model behavior.
//
// Users who have not opted in to AI advice are denied locally, regardless of
// query content, without a decision point round trip. Otherwise the classified
// intent is checked against the caller's permissions.
func (g *Guard) PromptFilter(ctx context.Context, user domain.UserContext, rawQuery string) (domain.FinancialQuery, domain.PermissionDecision, error) {
	start := time.Now()

	trimmed := strings.TrimSpace(rawQuery)
	if trimmed == "" {
		return domain.FinancialQuery{}, domain.PermissionDecision{}, fmt.Errorf("%w: query text is empty", domain.ErrValidation)
	}
	if user.ID == "" {
		return domain.FinancialQuery{}, domain.PermissionDecision{}, fmt.Errorf("%w: user context has no identity", domain.ErrValidation)
	}

	query := domain.FinancialQuery{
		Text:   trimmed,
		Intent: ClassifyQueryIntent(trimmed),
	}

	if !user.OptedInForAIAdvice {
		decision := domain.Deny(ReasonOptInRequired, map[string]string{
			"ai_advice_opted_in": "false",
			"query_intent":       string(query.Intent),
		})
		g.observe(PerimeterPrompt, decision, nil, start)
		return query, decision, nil
	}

	decision, err := g.client.Check(ctx, pdp.CheckRequest{
		Subject:      user,
		Action:       "receive",
		ResourceType: "financial_advice",
		ResourceAttributes: map[string]string{
			"is_ai_generated": strconv.FormatBool(query.Intent == domain.IntentAdviceRequest),
		},
		ContextAttributes: map[string]string{
			"query_intent": string(query.Intent),
		},
	})
	g.observe(PerimeterPrompt, decision, err, start)
	return query, decision, nil
}
