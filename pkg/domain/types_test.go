package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClearanceLevel(t *testing.T) {
	level, ok := ParseClearanceLevel("  Elevated ")
	require.True(t, ok)
	assert.Equal(t, ClearanceElevated, level)

	_, ok = ParseClearanceLevel("cosmic")
	assert.False(t, ok)
}

func TestNewUserContextCopiesAttributes(t *testing.T) {
	attrs := map[string]string{"department": "wealth"}
	user := NewUserContext("u-1", "premium_user", true, ClearanceStandard, attrs)

	attrs["department"] = "changed"
	assert.Equal(t, "wealth", user.Attributes["department"], "caller mutation must not reach the context")
}

func TestDenyAndAllowNeverReturnNilAttributes(t *testing.T) {
	assert.NotNil(t, Deny("reason", nil).AttributesEvaluated)
	assert.NotNil(t, Allow("reason", nil).AttributesEvaluated)
}
