package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/fingate-ai/fingate/pkg/domain"
	"github.com/fingate-ai/fingate/pkg/perimeter"
)

// ScriptedModel is a deterministic Model for local development and tests. It
// requests document retrieval for knowledge-seeking queries, requests a
// portfolio action when the query names one, and otherwise drafts an answer
// from whatever documents survived data protection.
type ScriptedModel struct{}

// NewScriptedModel returns the deterministic local model.
func NewScriptedModel() *ScriptedModel {
	return &ScriptedModel{}
}

// Generate implements Model.
func (m *ScriptedModel) Generate(_ context.Context, req Request) (Turn, error) {
	lower := strings.ToLower(req.Query.Text)

	if action, ok := parseRequestedAction(lower); ok && req.ActionOutcome == "" {
		return Turn{Tool: ToolPortfolioAction, Action: &action}, nil
	}

	if req.Documents == nil && req.ActionOutcome == "" {
		return Turn{Tool: ToolRetrieveDocuments, SearchQuery: req.Query.Text}, nil
	}

	return Turn{Response: m.draft(req)}, nil
}

// parseRequestedAction detects an explicit trade request in the query.
func parseRequestedAction(lower string) (domain.PortfolioAction, bool) {
	var kind domain.ActionKind
	switch {
	case strings.Contains(lower, "rebalance"):
		kind = domain.ActionRebalance
	case strings.Contains(lower, "sell"):
		kind = domain.ActionSell
	case strings.Contains(lower, "buy"):
		kind = domain.ActionBuy
	default:
		return domain.PortfolioAction{}, false
	}

	if !strings.Contains(lower, "portfolio") && !strings.Contains(lower, "holding") {
		return domain.PortfolioAction{}, false
	}

	tier := domain.TierStandard
	if strings.Contains(lower, "premium") || strings.Contains(lower, "high-value") {
		tier = domain.TierPremium
	}

	return domain.PortfolioAction{Kind: kind, PortfolioID: "portfolio-main", Tier: tier}, true
}

func (m *ScriptedModel) draft(req Request) *domain.FinancialResponse {
	var b strings.Builder

	if req.ActionOutcome != "" {
		fmt.Fprintf(&b, "Your request was processed: %s.", req.ActionOutcome)
	} else if len(req.Documents) > 0 {
		b.WriteString("Based on the available material: ")
		for i, doc := range req.Documents {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(doc.Content)
		}
	} else {
		b.WriteString("I could not find material matching your question.")
	}

	if req.Query.Intent == domain.IntentAdviceRequest {
		b.WriteString(" As a general approach, consider starting with broad " +
			"diversification and low-cost index funds before more concentrated positions.")
	}

	text := b.String()
	containsAdvice := perimeter.ClassifyResponseAdvice(text)
	return &domain.FinancialResponse{
		Text:           text,
		ContainsAdvice: containsAdvice,
		Risk:           perimeter.ClassifyResponseRisk(text, containsAdvice),
	}
}
