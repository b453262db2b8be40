package domain

// RiskLevel enumerates guardrail outcomes.
type RiskLevel string

const (
	RiskSafe     RiskLevel = "safe"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// GuardrailAction describes how the execute action reacts to a risk level.
// Execution is always simulated; the action decides whether the simulation
// needs a confirmation or is refused.
type GuardrailAction string

const (
	ActionAllow           GuardrailAction = "allow"
	ActionConfirm         GuardrailAction = "confirm"
	ActionExplicitConfirm GuardrailAction = "explicit_confirm"
	ActionBlock           GuardrailAction = "block"
)

// RiskAssessment aggregates security evaluation data.
type RiskAssessment struct {
	Level        RiskLevel
	Action       GuardrailAction
	Reasons      []string
	MatchedRules []string
}

// IsSafe reports whether no rule matched.
func (r RiskAssessment) IsSafe() bool {
	return r.Level == "" || r.Level == RiskSafe
}
