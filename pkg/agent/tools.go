package agent

import (
	"context"
	"fmt"

	"github.com/fingate-ai/fingate/pkg/domain"
	"github.com/fingate-ai/fingate/pkg/knowledge"
	"github.com/fingate-ai/fingate/pkg/perimeter"
)

// toolOutcome is the result of one gated tool execution. A denied outcome is
// normal control flow, not an error: the run terminates rejected with the
// recorded decision.
type toolOutcome struct {
	next      State
	denied    bool
	denial    domain.PermissionDecision
	perimeter string
}

// toolHandler executes one tool request, mutating req with the results the
// next generation turn may see.
type toolHandler func(ctx context.Context, req *Request, turn Turn) (toolOutcome, error)

// toolset is the explicit registry of tools the model may invoke. A turn
// naming anything outside the registry fails the run; there is no dynamic
// dispatch and no tool the gates do not know about.
type toolset struct {
	handlers map[string]toolHandler
}

func newToolset(guard *perimeter.Guard, store knowledge.Store, executor ActionExecutor) *toolset {
	t := &toolset{handlers: make(map[string]toolHandler, 2)}
	t.handlers[ToolRetrieveDocuments] = retrieveDocumentsHandler(guard, store)
	t.handlers[ToolPortfolioAction] = portfolioActionHandler(guard, executor)
	return t
}

func (t *toolset) handle(ctx context.Context, req *Request, turn Turn) (toolOutcome, error) {
	handler, ok := t.handlers[turn.Tool]
	if !ok {
		return toolOutcome{}, fmt.Errorf("%w: %q", domain.ErrToolNotRegistered, turn.Tool)
	}
	return handler(ctx, req, turn)
}

// retrieveDocumentsHandler searches the knowledge store and passes every
// candidate through the data-protection gate. Filtering is not a denial: an
// empty retained set still advances the run, the model just answers without
// the dropped material.
func retrieveDocumentsHandler(guard *perimeter.Guard, store knowledge.Store) toolHandler {
	return func(ctx context.Context, req *Request, turn Turn) (toolOutcome, error) {
		candidates, err := store.Search(ctx, turn.SearchQuery)
		if err != nil {
			return toolOutcome{}, fmt.Errorf("knowledge search: %w", err)
		}

		retained, _, err := guard.DataProtection(ctx, req.User, candidates)
		if err != nil {
			return toolOutcome{}, err
		}
		if retained == nil {
			retained = []domain.FinancialDocument{}
		}
		req.Documents = retained
		return toolOutcome{next: StateKnowledgeGranted}, nil
	}
}

// portfolioActionHandler gates the action and, on allow, executes it
// immediately. Nothing runs between the decision and the execution; a retry
// re-enters the gate.
func portfolioActionHandler(guard *perimeter.Guard, executor ActionExecutor) toolHandler {
	return func(ctx context.Context, req *Request, turn Turn) (toolOutcome, error) {
		if turn.Action == nil {
			return toolOutcome{}, fmt.Errorf("%w: portfolio action turn carries no action", domain.ErrValidation)
		}

		decision, err := guard.ExternalAccess(ctx, req.User, *turn.Action)
		if err != nil {
			return toolOutcome{}, err
		}
		if !decision.Allowed {
			return toolOutcome{
				denied:    true,
				denial:    decision,
				perimeter: perimeter.PerimeterAction,
			}, nil
		}

		outcome, err := executor.Execute(ctx, req.User, *turn.Action)
		if err != nil {
			return toolOutcome{}, fmt.Errorf("execute portfolio action: %w", err)
		}
		req.ActionOutcome = outcome
		return toolOutcome{next: StateActionAuthorized}, nil
	}
}
