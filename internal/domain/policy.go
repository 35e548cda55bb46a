package domain

// ConfirmationRequirement asks the caller to re-prompt for step-up or
// confirmation before the action can proceed.
type ConfirmationRequirement struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

// PolicyDecision is the outcome of evaluating one (actor, action,
// sensitivity, input) tuple. It is produced by a pure function and carries
// no side effects itself.
type PolicyDecision struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason,omitempty"`

	// RequireConfirmation is populated when the denial is recoverable by a
	// step-up or confirmation round trip.
	RequireConfirmation *ConfirmationRequirement `json:"require_confirmation,omitempty"`
}

// Allowed is the decision that permits an action unconditionally.
func Allowed() PolicyDecision {
	return PolicyDecision{Allow: true}
}

// Denied builds a terminal denial.
func Denied(reason string) PolicyDecision {
	return PolicyDecision{Allow: false, Reason: reason}
}

// NeedsConfirmation builds a denial that the caller can cure by
// re-prompting the actor.
func NeedsConfirmation(reason, message string) PolicyDecision {
	return PolicyDecision{
		Allow:               false,
		Reason:              reason,
		RequireConfirmation: &ConfirmationRequirement{Message: message},
	}
}
