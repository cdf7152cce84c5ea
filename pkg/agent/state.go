package agent

import (
	"fmt"

	"github.com/fingate-ai/fingate/pkg/domain"
)

// State names a stage of the advisory pipeline. Every request walks the
// machine forward; there are no backward edges.
type State string

const (
	StateQueryReceived    State = "query_received"
	StatePromptValidated  State = "prompt_validated"
	StateKnowledgeGranted State = "knowledge_accessed"
	StateActionAuthorized State = "action_authorized"
	StateResponseChecked  State = "response_validated"
	StateDelivered        State = "delivered"
	StateRejected         State = "rejected"
)

// validTransitions encodes the forward edges of the pipeline. Knowledge
// access and action authorization are optional stages, so validated prompts
// may step straight to response validation. Knowledge access may repeat;
// every retrieval passes the data-protection gate again, so models that
// search more than once stay on a valid path.
var validTransitions = map[State][]State{
	StateQueryReceived:    {StatePromptValidated, StateRejected},
	StatePromptValidated:  {StateKnowledgeGranted, StateActionAuthorized, StateResponseChecked, StateRejected},
	StateKnowledgeGranted: {StateKnowledgeGranted, StateActionAuthorized, StateResponseChecked, StateRejected},
	StateActionAuthorized: {StateResponseChecked, StateRejected},
	StateResponseChecked:  {StateDelivered, StateRejected},
}

// transition validates and applies one state machine step.
func transition(from, to State) (State, error) {
	for _, next := range validTransitions[from] {
		if next == to {
			return to, nil
		}
	}
	return from, fmt.Errorf("%w: %s -> %s", domain.ErrStateTransition, from, to)
}

// Terminal reports whether the state ends the pipeline.
func (s State) Terminal() bool {
	return s == StateDelivered || s == StateRejected
}
