package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fingate-ai/fingate/pkg/domain"
)

func TestTransitionForwardPath(t *testing.T) {
	state := StateQueryReceived

	var err error
	for _, next := range []State{StatePromptValidated, StateKnowledgeGranted, StateActionAuthorized, StateResponseChecked, StateDelivered} {
		state, err = transition(state, next)
		require.NoError(t, err)
		assert.Equal(t, next, state)
	}
	assert.True(t, state.Terminal())
}

func TestTransitionSkipsOptionalStages(t *testing.T) {
	// Knowledge access and action authorization are both optional.
	state, err := transition(StatePromptValidated, StateResponseChecked)
	require.NoError(t, err)
	assert.Equal(t, StateResponseChecked, state)
}

func TestTransitionAllowsRepeatedKnowledgeAccess(t *testing.T) {
	// A model may search more than once; each retrieval re-enters the
	// data-protection gate.
	state, err := transition(StateKnowledgeGranted, StateKnowledgeGranted)
	require.NoError(t, err)
	assert.Equal(t, StateKnowledgeGranted, state)
}

func TestTransitionRejectableFromEveryStage(t *testing.T) {
	for _, from := range []State{StateQueryReceived, StatePromptValidated, StateKnowledgeGranted, StateActionAuthorized, StateResponseChecked} {
		state, err := transition(from, StateRejected)
		require.NoError(t, err, "stage %s", from)
		assert.Equal(t, StateRejected, state)
	}
}

func TestTransitionBackwardEdgesAreInvalid(t *testing.T) {
	tests := []struct{ from, to State }{
		{StateDelivered, StateQueryReceived},
		{StateRejected, StatePromptValidated},
		{StateResponseChecked, StateKnowledgeGranted},
		{StateQueryReceived, StateDelivered},
	}

	for _, tt := range tests {
		state, err := transition(tt.from, tt.to)
		require.Error(t, err, "%s -> %s", tt.from, tt.to)
		assert.ErrorIs(t, err, domain.ErrStateTransition)
		assert.Equal(t, tt.from, state, "a failed transition must not move the machine")
	}
}
