// Package policy implements the decision gate every execute step must pass.
//
// Decide is a pure function of the request tuple: role gate first, then the
// step-up gate, then the action's resource-specific rule. Only the static
// (role, action) role-gate verdict is cached; dynamic decisions depend on
// the exact input and are never cached.
package policy

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Ayejay3194/business-spine/internal/domain"
	"github.com/Ayejay3194/business-spine/internal/spine"
	"github.com/Ayejay3194/business-spine/internal/stepup"
)

// Request is the tuple a decision is made over.
type Request struct {
	Ctx domain.RequestContext

	// Action is the qualified action name, e.g. "billing.create_invoice".
	Action string

	// Spec is the action's declaration from its spine.
	Spec spine.ActionSpec

	// Input is the exact input the action would execute with.
	Input map[string]any

	// Confirmed is set by the runner when a valid confirmation token bound
	// to this exact action and input was consumed this turn.
	Confirmed bool
}

type staticKey struct {
	role   domain.Role
	action string
}

// Engine evaluates policy requests.
type Engine struct {
	verifier stepup.Verifier
	static   *lru.Cache[staticKey, bool]
}

// staticCacheSize bounds the role-gate cache. The (role, action) space is
// tiny; the bound only guards against unbounded growth on bad input.
const staticCacheSize = 1024

// NewEngine creates an engine using the given step-up verifier. A nil
// verifier rejects all step-up credentials.
func NewEngine(verifier stepup.Verifier) *Engine {
	if verifier == nil {
		verifier = stepup.DenyAll{}
	}
	cache, _ := lru.New[staticKey, bool](staticCacheSize)
	return &Engine{verifier: verifier, static: cache}
}

// Decide evaluates the gates in order and returns the first failure, or an
// allow. Violations are reported, never silently dropped: every denial
// carries a reason the caller surfaces and audits.
func (e *Engine) Decide(ctx context.Context, req Request) domain.PolicyDecision {
	// 1. Role gate (static, cacheable).
	if !e.roleAllowed(req.Ctx.Actor.Role, req.Action, req.Spec) {
		return domain.Denied(fmt.Sprintf("role %s not permitted to run %s", req.Ctx.Actor.Role, req.Action))
	}

	// 2. Step-up gate. High-sensitivity actions need either a consumed
	// confirmation token bound to this exact action and input, or a
	// verified step-up credential from the identity provider.
	if req.Spec.Sensitivity == domain.SensitivityHigh && !req.Confirmed {
		token := req.Ctx.StepUpToken
		if token == "" || !e.verifier.Verify(ctx, token, req.Ctx.Actor.UserID) {
			return domain.NeedsConfirmation(
				"step-up verification required",
				fmt.Sprintf("%s is a high-sensitivity action and requires confirmation", req.Action),
			)
		}
	}

	// 3. Resource-specific rule, evaluated over the exact input.
	if req.Spec.Rule != nil {
		if decision := req.Spec.Rule(req.Ctx, req.Input); !decision.Allow {
			return decision
		}
	}

	return domain.Allowed()
}

func (e *Engine) roleAllowed(role domain.Role, action string, spec spine.ActionSpec) bool {
	key := staticKey{role: role, action: action}
	if allowed, ok := e.static.Get(key); ok {
		return allowed
	}
	allowed := spec.RoleAllowed(role)
	e.static.Add(key, allowed)
	return allowed
}
