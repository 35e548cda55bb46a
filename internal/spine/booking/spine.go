// Package booking is the appointment spine: booking, cancelling, and
// listing appointments for a tenant.
package booking

import (
	"context"
	"fmt"
	"regexp"

	"github.com/Ayejay3194/business-spine/internal/domain"
	"github.com/Ayejay3194/business-spine/internal/extract"
	"github.com/Ayejay3194/business-spine/internal/intent"
	"github.com/Ayejay3194/business-spine/internal/spine"
	"github.com/Ayejay3194/business-spine/internal/tool"
)

// SpineName is the registry key for this spine.
const SpineName = "booking"

var patterns = []intent.Pattern{
	{Action: "book_appointment", All: []string{"book"}, Confidence: 0.9},
	{Action: "cancel_appointment", All: []string{"cancel"}, Any: []string{"appointment", "booking", "appt"}, Confidence: 0.85},
	{Action: "list_appointments", Any: []string{"appointments", "bookings"}, Confidence: 0.7},
}

var servicePattern = regexp.MustCompile(`(?i)\bbook\s+(?:an?\s+)?([a-z]+)`)

var fieldsByAction = map[string][]extract.Field{
	"book_appointment": {
		{Name: "service", Kind: extract.KindText, Required: true, Pattern: servicePattern},
		{Name: "email", Kind: extract.KindEmail, Required: true},
		{Name: "start_time", Kind: extract.KindDateTime, Required: true},
		{Name: "duration_min", Kind: extract.KindDuration, Required: true},
	},
	"cancel_appointment": {
		{Name: "email", Kind: extract.KindEmail, Required: true},
	},
	"list_appointments": nil,
}

// Spine implements spine.Spine for appointments.
type Spine struct {
	repo    Repository
	actions map[string]spine.ActionSpec
}

// New creates the booking spine over a repository.
func New(repo Repository) *Spine {
	s := &Spine{repo: repo}
	s.actions = map[string]spine.ActionSpec{
		"book_appointment": {
			Name:         "book_appointment",
			Sensitivity:  domain.SensitivityLow,
			AllowedRoles: []domain.Role{domain.RoleOwner, domain.RoleAdmin, domain.RoleStaff, domain.RoleAssistant, domain.RoleSystem},
			Tool:         "booking.create",
		},
		"cancel_appointment": {
			Name:         "cancel_appointment",
			Sensitivity:  domain.SensitivityMedium,
			AllowedRoles: []domain.Role{domain.RoleOwner, domain.RoleAdmin, domain.RoleStaff},
			Tool:         "booking.cancel",
		},
		"list_appointments": {
			Name:         "list_appointments",
			Sensitivity:  domain.SensitivityLow,
			AllowedRoles: []domain.Role{domain.RoleOwner, domain.RoleAdmin, domain.RoleStaff, domain.RoleAccountant, domain.RoleAssistant, domain.RoleSystem},
			Tool:         "booking.list",
		},
	}
	return s
}

func (s *Spine) Name() string { return SpineName }

func (s *Spine) Detect(text string, rctx domain.RequestContext) []domain.Intent {
	return intent.Match(text, patterns)
}

func (s *Spine) Extract(it domain.Intent, text string, rctx domain.RequestContext) domain.Extraction {
	return extract.Run(fieldsByAction[it.Name], text, rctx)
}

func (s *Spine) Action(name string) (spine.ActionSpec, bool) {
	spec, ok := s.actions[name]
	return spec, ok
}

func (s *Spine) Tools() []tool.Tool {
	return []tool.Tool{
		tool.Func{ToolName: "booking.create", Fn: s.createTool},
		tool.Func{ToolName: "booking.cancel", Fn: s.cancelTool},
		tool.Func{ToolName: "booking.list", Fn: s.listTool},
	}
}

func (s *Spine) createTool(ctx context.Context, call tool.Call) (tool.Result, error) {
	email, _ := call.Input["email"].(string)
	service, _ := call.Input["service"].(string)
	start, _ := call.Input["start_time"].(string)
	duration := intValue(call.Input["duration_min"])

	if email == "" || service == "" || start == "" || duration <= 0 {
		return tool.Result{OK: false, Error: "booking requires service, email, start_time, and duration_min"}, nil
	}

	appt, err := s.repo.Create(ctx, Appointment{
		TenantID:    call.Ctx.TenantID,
		ClientEmail: email,
		Service:     service,
		Start:       start,
		DurationMin: duration,
	})
	if err != nil {
		return tool.Result{OK: false, Error: fmt.Sprintf("creating appointment: %v", err)}, nil
	}
	return tool.Result{OK: true, Data: appt}, nil
}

func (s *Spine) cancelTool(ctx context.Context, call tool.Call) (tool.Result, error) {
	email, _ := call.Input["email"].(string)
	if email == "" {
		return tool.Result{OK: false, Error: "cancellation requires the client email"}, nil
	}

	n, err := s.repo.CancelByEmail(ctx, call.Ctx.TenantID, email)
	if err != nil {
		return tool.Result{OK: false, Error: fmt.Sprintf("cancelling appointments: %v", err)}, nil
	}
	if n == 0 {
		return tool.Result{OK: false, Error: fmt.Sprintf("no appointments found for %s", email)}, nil
	}
	return tool.Result{OK: true, Data: map[string]any{"cancelled": n}}, nil
}

func (s *Spine) listTool(ctx context.Context, call tool.Call) (tool.Result, error) {
	appts, err := s.repo.ListByTenant(ctx, call.Ctx.TenantID)
	if err != nil {
		return tool.Result{OK: false, Error: fmt.Sprintf("listing appointments: %v", err)}, nil
	}
	return tool.Result{OK: true, Data: appts}, nil
}

// intValue tolerates the numeric types an entity can arrive as: int from
// the extractor, float64 from JSON round trips.
func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
