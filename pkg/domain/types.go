package domain

import "strings"

// ClearanceLevel gates access to document classification tiers.
type ClearanceLevel string

const (
	// ClearanceStandard is the default clearance granted to every user.
	ClearanceStandard ClearanceLevel = "standard"
	// ClearanceElevated unlocks confidential documents and high-value actions.
	ClearanceElevated ClearanceLevel = "elevated"
)

// IsValid reports whether the clearance level is recognised.
func (c ClearanceLevel) IsValid() bool {
	switch c {
	case ClearanceStandard, ClearanceElevated:
		return true
	default:
		return false
	}
}

// ParseClearanceLevel converts a textual representation into a ClearanceLevel.
func ParseClearanceLevel(value string) (ClearanceLevel, bool) {
	level := ClearanceLevel(strings.TrimSpace(strings.ToLower(value)))
	return level, level.IsValid()
}

// UserContext is the immutable per-request identity bundle passed through the
// pipeline. It is constructed once per incoming request and never mutated
// afterwards; gates read it concurrently during document fan-out.
type UserContext struct {
	ID                 string
	Role               string
	OptedInForAIAdvice bool
	Clearance          ClearanceLevel
	Attributes         map[string]string
}

// NewUserContext builds a UserContext, copying the attribute map so later
// mutation by the caller cannot reach an in-flight request.
func NewUserContext(id, role string, optedIn bool, clearance ClearanceLevel, attrs map[string]string) UserContext {
	copied := make(map[string]string, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	return UserContext{
		ID:                 id,
		Role:               role,
		OptedInForAIAdvice: optedIn,
		Clearance:          clearance,
		Attributes:         copied,
	}
}

// QueryIntent classifies what a query is asking for.
type QueryIntent string

const (
	// IntentAdviceRequest marks queries seeking a recommendation.
	IntentAdviceRequest QueryIntent = "advice_request"
	// IntentInformational marks queries asking for facts only.
	IntentInformational QueryIntent = "informational"
)

// FinancialQuery is the raw question plus its derived intent. It is created
// at prompt-filter time and read-only afterwards.
type FinancialQuery struct {
	Text   string
	Intent QueryIntent
}

// DocClassification is the sensitivity tier of a knowledge document.
type DocClassification string

const (
	// ClassificationPublic documents are readable by any role.
	ClassificationPublic DocClassification = "public"
	// ClassificationConfidential documents require elevated clearance.
	ClassificationConfidential DocClassification = "confidential"
)

// FinancialDocument describes a knowledge-base document. The pipeline only
// reads classification metadata; content ownership stays with the store.
type FinancialDocument struct {
	ID             string
	Type           string
	Classification DocClassification
	Content        string
}

// ActionKind identifies what a portfolio action does.
type ActionKind string

const (
	ActionBuy       ActionKind = "buy"
	ActionSell      ActionKind = "sell"
	ActionRebalance ActionKind = "rebalance"
	ActionAnalyze   ActionKind = "analyze"
)

// ValueTier classifies the magnitude of a portfolio action.
type ValueTier string

const (
	TierStandard ValueTier = "standard"
	TierPremium  ValueTier = "premium"
)

// PortfolioAction is created when the agent decides to act and consumed once
// by the external-access gate, then either executed or discarded.
type PortfolioAction struct {
	Kind        ActionKind
	PortfolioID string
	Tier        ValueTier
}

// RiskLevel is compliance metadata attached to advice-bearing responses.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// FinancialResponse is the draft answer produced by the model. The
// response-enforcement gate mutates it exactly once (disclaimer injection or
// refusal replacement); it is never mutated afterwards.
type FinancialResponse struct {
	Text           string
	ContainsAdvice bool
	Risk           RiskLevel
	Disclaimer     string
}

// PermissionDecision is the outcome of a single authorization check. It is
// ephemeral: produced per check and never cached or reused across perimeters,
// because the resource/action pair differs every time.
type PermissionDecision struct {
	Allowed             bool
	Reason              string
	AttributesEvaluated map[string]string
}

// Deny builds a denial decision with the supplied reason.
func Deny(reason string, attrs map[string]string) PermissionDecision {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return PermissionDecision{Allowed: false, Reason: reason, AttributesEvaluated: attrs}
}

// Allow builds an allowing decision.
func Allow(reason string, attrs map[string]string) PermissionDecision {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return PermissionDecision{Allowed: true, Reason: reason, AttributesEvaluated: attrs}
}
