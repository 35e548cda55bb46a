// Package registration wires the built-in spines into the registries.
// Registration is explicit and called from cmd and tests before the
// orchestrator is constructed; there are no init-based side effects.
package registration

import (
	"fmt"
	"log/slog"

	"github.com/Ayejay3194/business-spine/internal/audit"
	"github.com/Ayejay3194/business-spine/internal/spine"
	"github.com/Ayejay3194/business-spine/internal/spine/admin"
	"github.com/Ayejay3194/business-spine/internal/spine/billing"
	"github.com/Ayejay3194/business-spine/internal/spine/booking"
	"github.com/Ayejay3194/business-spine/internal/spine/crm"
	"github.com/Ayejay3194/business-spine/internal/tool"
)

// Deps carries the collaborators the built-in spines need. Nil repository
// fields fall back to in-memory implementations, which suit tests and
// single-instance development.
type Deps struct {
	Logger      *slog.Logger
	AuditLog    *audit.Logger
	BookingRepo booking.Repository
	CRMRepo     crm.Repository
	BillingRepo billing.Repository
	Notifier    billing.Notifier
}

// RegisterBuiltins registers the built-in spines and their tools. The
// registration order is the declaration order used to break intent
// confidence ties, so it is deliberate and stable: booking, crm, billing,
// admin.
func RegisterBuiltins(spines *spine.Registry, tools *tool.Registry, deps Deps) error {
	if deps.BookingRepo == nil {
		deps.BookingRepo = booking.NewMemoryRepository()
	}
	if deps.CRMRepo == nil {
		deps.CRMRepo = crm.NewMemoryRepository()
	}
	if deps.BillingRepo == nil {
		deps.BillingRepo = billing.NewMemoryRepository()
	}
	if deps.Notifier == nil {
		deps.Notifier = billing.NewLogNotifier(deps.Logger)
	}

	builtins := []spine.Spine{
		booking.New(deps.BookingRepo),
		crm.New(deps.CRMRepo),
		billing.New(deps.BillingRepo, deps.Notifier),
		admin.New(deps.AuditLog),
	}

	for _, s := range builtins {
		if err := spines.Register(s); err != nil {
			return fmt.Errorf("registering spine %s: %w", s.Name(), err)
		}
		for _, t := range s.Tools() {
			if err := tools.Register(t); err != nil {
				return fmt.Errorf("registering tool %s: %w", t.Name(), err)
			}
		}
	}
	return nil
}
