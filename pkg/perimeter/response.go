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

// ResponseEnforcement is the final gate. It both authorizes and transforms:
// compliance is as much about shape (disclaimer present) as about permission
// (allowed to receive advice at all).
//
// On allow, an advice-bearing response without a disclaimer gets the
// canonical disclaimer appended exactly once; enforcing an already-compliant
// response is a no-op. On deny, the draft is replaced with a generic refusal
// and the original content never reaches the caller.
func (g *Guard) ResponseEnforcement(ctx context.Context, user domain.UserContext, response domain.FinancialResponse) (domain.PermissionDecision, domain.FinancialResponse, error) {
	start := time.Now()

	if strings.TrimSpace(response.Text) == "" {
		return domain.PermissionDecision{}, domain.FinancialResponse{}, fmt.Errorf("%w: response text is empty", domain.ErrValidation)
	}

	// Re-classify rather than trusting the model's own flag; the draft may
	// drift into advice the model did not declare.
	containsAdvice := response.ContainsAdvice || ClassifyResponseAdvice(response.Text)
	risk := response.Risk
	if risk == "" {
		risk = ClassifyResponseRisk(response.Text, containsAdvice)
	}

	decision, err := g.client.Check(ctx, pdp.CheckRequest{
		Subject:      user,
		Action:       "requires_disclaimer",
		ResourceType: "financial_response",
		ContextAttributes: map[string]string{
			"contains_advice": strconv.FormatBool(containsAdvice),
			"risk_level":      string(risk),
		},
	})
	g.observe(PerimeterResponse, decision, err, start)

	if !decision.Allowed {
		refused := domain.FinancialResponse{
			Text:           RefusalMessage,
			ContainsAdvice: false,
			Risk:           domain.RiskLow,
		}
		return decision, refused, nil
	}

	transformed := response
	transformed.ContainsAdvice = containsAdvice
	transformed.Risk = risk
	if containsAdvice && !hasDisclaimer(transformed) {
		transformed.Disclaimer = Disclaimer
		transformed.Text = transformed.Text + "\n\n" + Disclaimer
	}
	return decision, transformed, nil
}

// hasDisclaimer reports whether the response already carries the disclaimer,
// either in its dedicated field or embedded in the text. This is what makes
// enforcement idempotent.
func hasDisclaimer(response domain.FinancialResponse) bool {
	return response.Disclaimer != "" || strings.Contains(response.Text, Disclaimer)
}
