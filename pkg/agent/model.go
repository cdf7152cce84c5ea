package agent

import (
	"context"

	"github.com/fingate-ai/fingate/pkg/domain"
)

// Tool names recognised by the orchestrator's registry.
const (
	ToolRetrieveDocuments = "retrieve_documents"
	ToolPortfolioAction   = "portfolio_action"
)

// Request carries everything the model may see for one generation turn: the
// validated query plus the results of previously executed (and gated) tools.
type Request struct {
	User          domain.UserContext
	Query         domain.FinancialQuery
	Documents     []domain.FinancialDocument
	ActionOutcome string
}

// Turn is one model output. Either a tool request is set, or Response holds
// the final draft. A turn naming an unregistered tool fails the run.
type Turn struct {
	// Tool is the registered tool the model wants to call, empty for a
	// final response.
	Tool string
	// SearchQuery parameterises ToolRetrieveDocuments.
	SearchQuery string
	// Action parameterises ToolPortfolioAction.
	Action *domain.PortfolioAction
	// Response is the final draft when Tool is empty.
	Response *domain.FinancialResponse
}

// Model produces generation turns. Implementations must be safe for
// concurrent use; the orchestrator may serve many requests at once.
type Model interface {
	Generate(ctx context.Context, req Request) (Turn, error)
}

// ActionExecutor performs an authorized portfolio action. Execution happens
// immediately after the allow decision with no intervening state change; a
// retried action goes back through the external-access gate first.
type ActionExecutor interface {
	Execute(ctx context.Context, user domain.UserContext, action domain.PortfolioAction) (string, error)
}

// SimulatedExecutor acknowledges actions without touching a real brokerage.
type SimulatedExecutor struct{}

// Execute implements ActionExecutor.
func (SimulatedExecutor) Execute(_ context.Context, _ domain.UserContext, action domain.PortfolioAction) (string, error) {
	return "executed " + string(action.Kind) + " on portfolio " + action.PortfolioID, nil
}
