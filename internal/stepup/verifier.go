// Package stepup defines the interface to the external step-up (re-auth /
// MFA) credential verifier. The core never issues or stores step-up
// credentials; it only asks the identity provider whether one verifies
// against the initiating actor.
package stepup

import "context"

// Verifier checks a step-up credential against an actor identity.
type Verifier interface {
	Verify(ctx context.Context, token, actorID string) bool
}

// StaticVerifier verifies tokens against a fixed actor-to-code map.
// Intended for development and tests; production deployments supply an
// identity-provider-backed implementation.
type StaticVerifier struct {
	codes map[string]string // actorID -> expected code
}

// NewStaticVerifier creates a verifier over a fixed code table.
func NewStaticVerifier(codes map[string]string) *StaticVerifier {
	return &StaticVerifier{codes: codes}
}

func (v *StaticVerifier) Verify(ctx context.Context, token, actorID string) bool {
	expected, ok := v.codes[actorID]
	return ok && token != "" && token == expected
}

// DenyAll rejects every credential. The safe default when no verifier is
// configured.
type DenyAll struct{}

func (DenyAll) Verify(ctx context.Context, token, actorID string) bool { return false }
