package provision

// Resource declares a protected resource type with its actions and the
// attributes policies may match on.
type Resource struct {
	Key         string               `json:"key"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Actions     []string             `json:"actions"`
	Attributes  map[string]Attribute `json:"attributes,omitempty"`
}

// Attribute describes one matchable attribute.
type Attribute struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Role is a named role and its direct resource:action grants.
type Role struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// ConditionSet groups users or resources by attribute conditions. Type is
// "userset" or "resourceset".
type ConditionSet struct {
	Key         string         `json:"key"`
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	ResourceID  string         `json:"resource_id,omitempty"`
	Conditions  map[string]any `json:"conditions"`
}

// ConditionSetRule grants a permission to a user set, optionally scoped to a
// resource set.
type ConditionSetRule struct {
	UserSet     string `json:"user_set"`
	Permission  string `json:"permission"`
	ResourceSet string `json:"resource_set,omitempty"`
}

// User is an example subject seeded for demos and smoke tests.
type User struct {
	Key        string         `json:"key"`
	Email      string         `json:"email"`
	FirstName  string         `json:"first_name"`
	LastName   string         `json:"last_name"`
	Attributes map[string]any `json:"attributes"`
	Role       string         `json:"role"`
}

// Vocabulary is the complete access-control model for the advisory pipeline.
type Vocabulary struct {
	Resources         []Resource
	UserAttributes    map[string]Attribute
	Roles             []Role
	ConditionSets     []ConditionSet
	ConditionSetRules []ConditionSetRule
	ExampleUsers      []User
}

// DefaultVocabulary returns the model the four perimeters check against:
// four resource types, two roles, opt-in and clearance condition sets.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Resources: []Resource{
			{
				Key:         "financial_advice",
				Name:        "Financial Advice",
				Description: "AI-generated financial advice",
				Actions:     []string{"receive"},
				Attributes: map[string]Attribute{
					"is_ai_generated": {Type: "bool", Description: "Whether the advice is AI-generated"},
					"risk_level":      {Type: "string", Description: "Risk level of the advice (low, medium, high)"},
				},
			},
			{
				Key:         "financial_document",
				Name:        "Financial Document",
				Description: "Financial knowledge documents",
				Actions:     []string{"read"},
				Attributes: map[string]Attribute{
					"doc_type":           {Type: "string", Description: "Type of financial document"},
					"classification":     {Type: "string", Description: "Document classification level"},
					"clearance_required": {Type: "string", Description: "Required clearance level to access"},
				},
			},
			{
				Key:         "financial_response",
				Name:        "Financial Response",
				Description: "AI-generated response content",
				Actions:     []string{"requires_disclaimer"},
				Attributes: map[string]Attribute{
					"contains_advice": {Type: "bool", Description: "Whether the response contains financial advice"},
					"risk_level":      {Type: "string", Description: "Risk level of the response"},
				},
			},
			{
				Key:         "portfolio",
				Name:        "Investment Portfolio",
				Description: "User investment portfolio",
				Actions:     []string{"update", "read", "analyze"},
				Attributes: map[string]Attribute{
					"owner_id":   {Type: "string", Description: "Portfolio owner ID"},
					"value_tier": {Type: "string", Description: "Portfolio value classification"},
				},
			},
		},
		UserAttributes: map[string]Attribute{
			"clearance_level":    {Type: "string", Description: "User's security clearance level"},
			"ai_advice_opted_in": {Type: "bool", Description: "Whether user has opted in to receive AI-generated advice"},
		},
		Roles: []Role{
			{
				Key:         "restricted_user",
				Name:        "restricted_user",
				Description: "Role for restricted_user with ABAC rules",
			},
			{
				Key:         "premium_user",
				Name:        "premium_user",
				Description: "Role for premium_user with ABAC rules",
				Permissions: []string{
					"financial_advice:receive",
					"financial_document:read",
					"portfolio:update",
					"portfolio:read",
					"portfolio:analyze",
				},
			},
		},
		ConditionSets: []ConditionSet{
			{
				Key:         "opted_in_users",
				Type:        "userset",
				Name:        "AI Advice Opted-in Users",
				Description: "Users who have consented to AI-generated advice",
				Conditions: map[string]any{
					"allOf": []any{map[string]any{"user.ai_advice_opted_in": map[string]any{"equals": true}}},
				},
			},
			{
				Key:         "high_clearance_users",
				Type:        "userset",
				Name:        "High Clearance Users",
				Description: "Users with elevated document access",
				Conditions: map[string]any{
					"allOf": []any{map[string]any{"user.clearance_level": map[string]any{"equals": "elevated"}}},
				},
			},
			{
				Key:         "confidential_docs",
				Type:        "resourceset",
				ResourceID:  "financial_document",
				Name:        "Confidential Documents",
				Description: "Documents with confidential classification",
				Conditions: map[string]any{
					"allOf": []any{map[string]any{"resource.classification": map[string]any{"equals": "confidential"}}},
				},
			},
			{
				Key:         "finance_advice",
				Type:        "resourceset",
				ResourceID:  "financial_advice",
				Name:        "Financial Advice",
				Description: "AI-generated advice content",
				Conditions: map[string]any{
					"allOf": []any{map[string]any{"resource.is_ai_generated": map[string]any{"equals": true}}},
				},
			},
		},
		ConditionSetRules: []ConditionSetRule{
			{UserSet: "opted_in_users", Permission: "financial_advice:receive", ResourceSet: "finance_advice"},
			{UserSet: "high_clearance_users", Permission: "financial_document:read", ResourceSet: "confidential_docs"},
		},
		ExampleUsers: []User{
			{
				Key:       "user@example.com",
				Email:     "user@example.com",
				FirstName: "Example",
				LastName:  "User",
				Attributes: map[string]any{
					"clearance_level":    "elevated",
					"ai_advice_opted_in": true,
				},
				Role: "premium_user",
			},
			{
				Key:       "restricted@example.com",
				Email:     "restricted@example.com",
				FirstName: "Restricted",
				LastName:  "User",
				Attributes: map[string]any{
					"clearance_level":    "standard",
					"ai_advice_opted_in": false,
				},
				Role: "restricted_user",
			},
		},
	}
}
