// Package spine defines the contract a business domain module fulfills to
// plug into the orchestrator, and the registry that holds them.
//
// A spine bundles intent detection, entity extraction, action declarations,
// and the tools that carry those actions out. The core never hardcodes a
// domain: everything it knows about booking, CRM, or billing arrives
// through this interface.
package spine

import (
	"fmt"
	"sync"

	"github.com/Ayejay3194/business-spine/internal/domain"
	"github.com/Ayejay3194/business-spine/internal/tool"
)

// ResourceRule is a domain-specific policy check applied after the generic
// role and step-up gates. It must be pure: decisions may depend on the
// request context and input, never on external state.
type ResourceRule func(rctx domain.RequestContext, input map[string]any) domain.PolicyDecision

// ActionSpec declares one action a spine can perform.
type ActionSpec struct {
	// Name is the action identifier, unique within the spine.
	Name string

	// Sensitivity classifies the scrutiny the action requires. High
	// sensitivity forces a confirmation round trip before execution.
	Sensitivity domain.Sensitivity

	// AllowedRoles is the set of roles permitted to run the action.
	AllowedRoles []domain.Role

	// Tool is the registry name of the tool that performs the action.
	Tool string

	// ConfirmPrompt is shown to the actor when step-up confirmation is
	// required. Optional; a generic prompt is used when empty.
	ConfirmPrompt string

	// Rule is an optional resource-specific policy check.
	Rule ResourceRule

	// Then names follow-up actions in the same spine that run after this
	// one in the same turn, with the same input.
	Then []string
}

// RoleAllowed reports whether role is in the action's allowed set.
func (a ActionSpec) RoleAllowed(role domain.Role) bool {
	for _, r := range a.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Spine is one business domain module.
type Spine interface {
	// Name returns the spine identifier, e.g. "booking".
	Name() string

	// Detect maps raw text to candidate intents for this spine. Pure,
	// total, and deterministic; returns nil when nothing matches.
	Detect(text string, rctx domain.RequestContext) []domain.Intent

	// Extract derives structured entities for a detected intent. It only
	// reads text and rctx; unresolvable required fields are reported in
	// Extraction.Missing, never guessed.
	Extract(intent domain.Intent, text string, rctx domain.RequestContext) domain.Extraction

	// Action returns the declaration for an action name.
	Action(name string) (ActionSpec, bool)

	// Tools returns the tools this spine owns.
	Tools() []tool.Tool
}

// Registry holds registered spines in declaration order. Declaration order
// breaks confidence ties during intent detection, so registration order is
// part of the system's observable behavior.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Spine
	order  []Spine
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Spine),
	}
}

// Register adds a spine. Duplicate names are rejected.
func (r *Registry) Register(s Spine) error {
	if s == nil || s.Name() == "" {
		return fmt.Errorf("spine name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[s.Name()]; exists {
		return fmt.Errorf("spine %q already registered", s.Name())
	}
	r.byName[s.Name()] = s
	r.order = append(r.order, s)
	return nil
}

// MustRegister registers a spine and panics on error. Intended for wiring
// built-ins at startup.
func (r *Registry) MustRegister(s Spine) {
	if err := r.Register(s); err != nil {
		panic(err)
	}
}

// Get returns a spine by name.
func (r *Registry) Get(name string) (Spine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byName[name]
	return s, ok
}

// Spines returns all spines in declaration order.
func (r *Registry) Spines() []Spine {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Spine, len(r.order))
	copy(out, r.order)
	return out
}

// Names returns the registered spine names in declaration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	for i, s := range r.order {
		names[i] = s.Name()
	}
	return names
}

// Action resolves an action declaration by spine and action name.
func (r *Registry) Action(spineName, actionName string) (ActionSpec, bool) {
	s, ok := r.Get(spineName)
	if !ok {
		return ActionSpec{}, false
	}
	return s.Action(actionName)
}
