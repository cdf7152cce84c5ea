package pdp

// defaultAuthzModule encodes the provisioned ABAC vocabulary for local
// development: the same resources, roles, user sets, and condition sets the
// provision command pushes to a remote decision point.
const defaultAuthzModule = `package fingate.authz

default allow := false

# financial_advice: only users who opted in to AI advice may receive it.
allow if {
	input.resource_type == "financial_advice"
	input.action == "receive"
	input.subject.ai_advice_opted_in == true
	input.subject.role != "restricted_user"
}

# financial_document: public documents are readable by any non-restricted role.
allow if {
	input.resource_type == "financial_document"
	input.action == "read"
	input.resource_attributes.classification == "public"
	input.subject.role != "restricted_user"
}

# financial_document: confidential documents require elevated clearance.
allow if {
	input.resource_type == "financial_document"
	input.action == "read"
	input.resource_attributes.classification == "confidential"
	input.subject.clearance_level == "elevated"
	input.subject.role != "restricted_user"
}

# portfolio: premium users may read and analyze their portfolio.
allow if {
	input.resource_type == "portfolio"
	input.action == "read"
	input.subject.role == "premium_user"
}

allow if {
	input.resource_type == "portfolio"
	input.action == "analyze"
	input.subject.role == "premium_user"
}

# portfolio: standard-tier updates need the premium role only.
allow if {
	input.resource_type == "portfolio"
	input.action == "update"
	input.subject.role == "premium_user"
	input.resource_attributes.value_tier == "standard"
}

# portfolio: premium-tier updates additionally need elevated clearance.
allow if {
	input.resource_type == "portfolio"
	input.action == "update"
	input.subject.role == "premium_user"
	input.resource_attributes.value_tier == "premium"
	input.subject.clearance_level == "elevated"
}

# financial_response: advice-bearing responses may only reach opted-in users.
allow if {
	input.resource_type == "financial_response"
	input.action == "requires_disclaimer"
	input.subject.ai_advice_opted_in == true
}

allow if {
	input.resource_type == "financial_response"
	input.action == "requires_disclaimer"
	input.context_attributes.contains_advice == "false"
}

default reason := "denied by policy"

reason := "allowed by policy" if allow

decision := {
	"allowed": allow,
	"reason": reason,
}
`

// DefaultModules returns the Rego modules loaded when no policy directory is
// configured.
func DefaultModules() map[string]string {
	return map[string]string{
		"fingate_authz.rego": defaultAuthzModule,
	}
}
