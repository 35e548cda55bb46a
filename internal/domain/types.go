package domain

import "time"

// Role identifies the privilege class of an actor.
type Role string

const (
	RoleOwner      Role = "owner"
	RoleAdmin      Role = "admin"
	RoleStaff      Role = "staff"
	RoleAccountant Role = "accountant"
	RoleModerator  Role = "moderator"
	RoleAssistant  Role = "assistant"
	RoleSystem     Role = "system"
)

// ValidRole reports whether r is one of the declared roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleStaff, RoleAccountant, RoleModerator, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Actor identifies who is driving a command. Immutable for the duration of
// one request.
type Actor struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// RequestContext carries tenant isolation and the logical current time for
// one inbound request. Now is always injected, never read from the wall
// clock inside the core, so every decision is reproducible. Created per
// request; never persisted.
type RequestContext struct {
	Actor    Actor  `json:"actor"`
	TenantID string `json:"tenant_id"`

	// Now is the logical current time in RFC 3339.
	Now time.Time `json:"now"`

	Locale   string `json:"locale,omitempty"`
	Timezone string `json:"timezone,omitempty"`
	Channel  string `json:"channel,omitempty"`

	// ConfirmToken is set when the caller is resuming a paused flow.
	ConfirmToken string `json:"confirm_token,omitempty"`

	// StepUpToken is a short-lived re-auth credential supplied out-of-band
	// for high-sensitivity actions.
	StepUpToken string `json:"step_up_token,omitempty"`
}

// Location resolves the context timezone, falling back to UTC.
func (c RequestContext) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Sensitivity classifies how much scrutiny an action requires before
// execution.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// ValidSensitivity reports whether s is one of the three legal levels.
func ValidSensitivity(s Sensitivity) bool {
	switch s {
	case SensitivityLow, SensitivityMedium, SensitivityHigh:
		return true
	}
	return false
}
