// Package admin is the administrative spine: reading and verifying the
// audit trail. The audit log is append-only; this spine declares no
// mutating action over it.
package admin

import (
	"context"
	"fmt"

	"github.com/Ayejay3194/business-spine/internal/audit"
	"github.com/Ayejay3194/business-spine/internal/domain"
	"github.com/Ayejay3194/business-spine/internal/intent"
	"github.com/Ayejay3194/business-spine/internal/spine"
	"github.com/Ayejay3194/business-spine/internal/tool"
)

// SpineName is the registry key for this spine.
const SpineName = "admin"

var patterns = []intent.Pattern{
	{Action: "show_audit", All: []string{"audit"}, Any: []string{"show", "view", "list", "trail", "log"}, Confidence: 0.9},
	{Action: "verify_audit", All: []string{"verify", "audit"}, Confidence: 0.9},
}

// Spine implements spine.Spine for administrative actions.
type Spine struct {
	auditLog *audit.Logger
	actions  map[string]spine.ActionSpec
}

// New creates the admin spine over the audit logger.
func New(auditLog *audit.Logger) *Spine {
	adminRoles := []domain.Role{domain.RoleOwner, domain.RoleAdmin}

	s := &Spine{auditLog: auditLog}
	s.actions = map[string]spine.ActionSpec{
		"show_audit": {
			Name:         "show_audit",
			Sensitivity:  domain.SensitivityLow,
			AllowedRoles: adminRoles,
			Tool:         "admin.audit_list",
		},
		"verify_audit": {
			Name:         "verify_audit",
			Sensitivity:  domain.SensitivityLow,
			AllowedRoles: adminRoles,
			Tool:         "admin.audit_verify",
		},
	}
	return s
}

func (s *Spine) Name() string { return SpineName }

func (s *Spine) Detect(text string, rctx domain.RequestContext) []domain.Intent {
	return intent.Match(text, patterns)
}

func (s *Spine) Extract(it domain.Intent, text string, rctx domain.RequestContext) domain.Extraction {
	return domain.Extraction{Entities: make(map[string]any)}
}

func (s *Spine) Action(name string) (spine.ActionSpec, bool) {
	spec, ok := s.actions[name]
	return spec, ok
}

func (s *Spine) Tools() []tool.Tool {
	return []tool.Tool{
		tool.Func{ToolName: "admin.audit_list", Fn: s.listTool},
		tool.Func{ToolName: "admin.audit_verify", Fn: s.verifyTool},
	}
}

func (s *Spine) listTool(ctx context.Context, call tool.Call) (tool.Result, error) {
	events, err := s.auditLog.List(ctx, call.Ctx.TenantID)
	if err != nil {
		return tool.Result{OK: false, Error: fmt.Sprintf("reading audit trail: %v", err)}, nil
	}
	return tool.Result{OK: true, Data: events}, nil
}

func (s *Spine) verifyTool(ctx context.Context, call tool.Call) (tool.Result, error) {
	events, err := s.auditLog.List(ctx, call.Ctx.TenantID)
	if err != nil {
		return tool.Result{OK: false, Error: fmt.Sprintf("reading audit trail: %v", err)}, nil
	}

	// A tampered chain is a finding, not a tool failure: the verification
	// itself succeeded and the report is the payload.
	return tool.Result{OK: true, Data: audit.VerifyChain(events)}, nil
}
