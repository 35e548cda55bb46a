package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/Ayejay3194/business-spine/internal/audit"
	"github.com/Ayejay3194/business-spine/internal/confirm"
	"github.com/Ayejay3194/business-spine/internal/domain"
	"github.com/Ayejay3194/business-spine/internal/flow"
	"github.com/Ayejay3194/business-spine/internal/intent"
	"github.com/Ayejay3194/business-spine/internal/policy"
	"github.com/Ayejay3194/business-spine/internal/registration"
	"github.com/Ayejay3194/business-spine/internal/spine"
	"github.com/Ayejay3194/business-spine/internal/stepup"
	"github.com/Ayejay3194/business-spine/internal/storage/memory"
	"github.com/Ayejay3194/business-spine/internal/tool"
)

var baseNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	orch     *Orchestrator
	auditLog *audit.Logger
}

// newFixture wires the full pipeline over the built-in spines and
// in-memory storage, the same shape cmd/spine assembles at startup.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	auditLog := audit.NewLogger(memory.NewAuditSink())
	issuer := confirm.NewIssuer([]byte("test-secret"), 5*time.Minute, memory.NewTokenStore())
	engine := policy.NewEngine(stepup.NewStaticVerifier(map[string]string{"owner-1": "otp-9"}))

	spines := spine.NewRegistry()
	tools := tool.NewRegistry()
	if err := registration.RegisterBuiltins(spines, tools, registration.Deps{AuditLog: auditLog}); err != nil {
		t.Fatalf("RegisterBuiltins() error = %v", err)
	}

	detector := intent.NewDetector(spines)
	builder := flow.NewBuilder(spines, issuer)
	runner := flow.NewRunner(tools, spines, engine, auditLog, issuer, time.Second, nil)

	return &fixture{
		orch:     New(spines, detector, builder, runner, nil),
		auditLog: auditLog,
	}
}

func actorCtx(userID string, role domain.Role) domain.RequestContext {
	return domain.RequestContext{
		Actor:    domain.Actor{UserID: userID, Role: role},
		TenantID: "t1",
		Now:      baseNow,
	}
}

func TestHandleBooksAppointment(t *testing.T) {
	f := newFixture(t)

	result, err := f.orch.Handle(context.Background(), actorCtx("staff-1", domain.RoleStaff),
		"Book a haircut for jane@example.com tomorrow at 3pm for 45 minutes")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if result.Final == nil || !result.Final.OK {
		t.Fatalf("Handle() final = %+v, want OK", result.Final)
	}
	if flow.StateOf(result) != flow.StateDone {
		t.Errorf("StateOf() = %v, want done", flow.StateOf(result))
	}

	events, _ := f.auditLog.List(context.Background(), "t1")
	if len(events) != 1 {
		t.Fatalf("audit events = %d, want 1", len(events))
	}
	if events[0].Action != "booking.book_appointment" || events[0].Outcome != domain.OutcomeSuccess {
		t.Errorf("audit event = %+v, want booking.book_appointment success", events[0])
	}
	if events[0].Target != "jane@example.com" {
		t.Errorf("audit target = %q, want jane@example.com", events[0].Target)
	}
}

func TestHandleAsksForMissingFields(t *testing.T) {
	f := newFixture(t)

	result, err := f.orch.Handle(context.Background(), actorCtx("staff-1", domain.RoleStaff), "Book a haircut")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if flow.StateOf(result) != flow.StateAskPending {
		t.Fatalf("StateOf() = %v, want ask_pending", flow.StateOf(result))
	}

	ask := result.Steps[len(result.Steps)-1]
	want := map[string]bool{"email": true, "start_time": true, "duration_min": true}
	if len(ask.Missing) != len(want) {
		t.Fatalf("ask Missing = %v, want %v", ask.Missing, want)
	}
	for _, field := range ask.Missing {
		if !want[field] {
			t.Errorf("unexpected missing field %q", field)
		}
	}

	// Nothing executed, nothing audited.
	if events, _ := f.auditLog.List(context.Background(), "t1"); len(events) != 0 {
		t.Errorf("audit events = %d, want 0", len(events))
	}
}

func TestHandleAskThenFullCommandCompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rctx := actorCtx("staff-1", domain.RoleStaff)

	first, _ := f.orch.Handle(ctx, rctx, "Book a massage")
	if flow.StateOf(first) != flow.StateAskPending {
		t.Fatalf("first turn state = %v, want ask_pending", flow.StateOf(first))
	}

	// An ask carries no state; the caller resubmits the complete command.
	rctx.Now = baseNow.Add(time.Minute)
	second, err := f.orch.Handle(ctx, rctx, "Book a massage for joe@example.com today at 11am for 1 hour")
	if err != nil {
		t.Fatalf("second Handle() error = %v", err)
	}
	if second.Final == nil || !second.Final.OK {
		t.Errorf("second turn final = %+v, want OK", second.Final)
	}
}

func TestHighSensitivityConfirmRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rctx := actorCtx("acct-1", domain.RoleAccountant)
	text := "Create an invoice for jane@example.com for $250"

	first, err := f.orch.Handle(ctx, rctx, text)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if flow.StateOf(first) != flow.StateConfirmPending {
		t.Fatalf("StateOf() = %v, want confirm_pending", flow.StateOf(first))
	}
	token := first.Steps[len(first.Steps)-1].Token
	if token == "" {
		t.Fatal("confirm step carries no token")
	}

	// Nothing ran yet.
	if events, _ := f.auditLog.List(ctx, "t1"); len(events) != 0 {
		t.Fatalf("audit events before confirmation = %d, want 0", len(events))
	}

	rctx.Now = baseNow.Add(time.Minute)
	second, err := f.orch.Resume(ctx, rctx, token, text, nil)
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if second.Final == nil || !second.Final.OK {
		t.Fatalf("Resume() final = %+v, want OK", second.Final)
	}

	// The composite action ran: create_invoice plus its send follow-up,
	// each with its own audit event, under one consumed confirmation.
	events, _ := f.auditLog.List(ctx, "t1")
	if len(events) != 2 {
		t.Fatalf("audit events = %d, want 2", len(events))
	}
	if events[0].Action != "billing.create_invoice" || events[1].Action != "billing.send_invoice" {
		t.Errorf("audit actions = [%s %s], want [billing.create_invoice billing.send_invoice]",
			events[0].Action, events[1].Action)
	}
}

func TestResumeWithModifiedInputConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rctx := actorCtx("acct-1", domain.RoleAccountant)

	first, _ := f.orch.Handle(ctx, rctx, "Create an invoice for jane@example.com for $250")
	token := first.Steps[len(first.Steps)-1].Token

	rctx.Now = baseNow.Add(time.Minute)
	_, err := f.orch.Resume(ctx, rctx, token, "Create an invoice for jane@example.com for $9999", nil)
	if domain.CodeOf(err) != domain.ErrorCodeConflict {
		t.Errorf("Resume() code = %v, want CONFLICT", domain.CodeOf(err))
	}

	// The tampered resume must not have executed anything.
	if events, _ := f.auditLog.List(ctx, "t1"); len(events) != 0 {
		t.Errorf("audit events = %d, want 0", len(events))
	}
}

func TestResumeRequiresToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.Resume(context.Background(), actorCtx("acct-1", domain.RoleAccountant), "", "anything", nil)
	if domain.CodeOf(err) != domain.ErrorCodeValidation {
		t.Errorf("Resume() code = %v, want VALIDATION", domain.CodeOf(err))
	}
}

func TestRefundCapDeniedForAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rctx := actorCtx("admin-1", domain.RoleAdmin)
	text := "Refund $2000 to jane@example.com"

	first, _ := f.orch.Handle(ctx, rctx, text)
	if flow.StateOf(first) != flow.StateConfirmPending {
		t.Fatalf("StateOf() = %v, want confirm_pending", flow.StateOf(first))
	}
	token := first.Steps[len(first.Steps)-1].Token

	rctx.Now = baseNow.Add(time.Minute)
	result, err := f.orch.Resume(ctx, rctx, token, text, nil)
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if result.Final == nil || result.Final.OK {
		t.Fatalf("Resume() final = %+v, want a denial", result.Final)
	}

	events, _ := f.auditLog.List(ctx, "t1")
	if len(events) != 1 || events[0].Outcome != domain.OutcomeBlocked {
		t.Fatalf("audit events = %+v, want one blocked event", events)
	}
}

func TestStepUpTokenSkipsConfirmRoundTrip(t *testing.T) {
	f := newFixture(t)
	rctx := actorCtx("owner-1", domain.RoleOwner)
	rctx.StepUpToken = "otp-9"

	result, err := f.orch.Handle(context.Background(), rctx, "Refund $2000 to jane@example.com")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if result.Final == nil || !result.Final.OK {
		t.Fatalf("Handle() final = %+v, want OK with a verified step-up token", result.Final)
	}

	events, _ := f.auditLog.List(context.Background(), "t1")
	if len(events) != 1 || events[0].Outcome != domain.OutcomeSuccess {
		t.Errorf("audit events = %+v, want one success", events)
	}
}

func TestStaffCannotReadAuditTrail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Seed the trail with an allowed action first.
	if _, err := f.orch.Handle(ctx, actorCtx("staff-1", domain.RoleStaff),
		"Book a haircut for jane@example.com today at 4pm for 30 min"); err != nil {
		t.Fatalf("seed Handle() error = %v", err)
	}

	result, err := f.orch.Handle(ctx, actorCtx("staff-1", domain.RoleStaff), "show the audit log")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if result.Final == nil || result.Final.OK {
		t.Fatalf("Handle() final = %+v, want a denial", result.Final)
	}

	events, _ := f.auditLog.List(ctx, "t1")
	if len(events) != 2 {
		t.Fatalf("audit events = %d, want 2 (seed success + blocked read)", len(events))
	}
	blocked := events[1]
	if blocked.Action != "admin.show_audit" || blocked.Outcome != domain.OutcomeBlocked {
		t.Errorf("second event = %+v, want blocked admin.show_audit", blocked)
	}
}

func TestAdminVerifiesAuditChain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.orch.Handle(ctx, actorCtx("staff-1", domain.RoleStaff),
		"Book a haircut for jane@example.com today at 4pm for 30 min")

	result, err := f.orch.Handle(ctx, actorCtx("admin-1", domain.RoleAdmin), "verify audit integrity")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if result.Final == nil || !result.Final.OK {
		t.Fatalf("Handle() final = %+v, want OK", result.Final)
	}
	report, ok := result.Final.Payload.(audit.Report)
	if !ok {
		t.Fatalf("payload type = %T, want audit.Report", result.Final.Payload)
	}
	if !report.Valid {
		t.Errorf("report = %+v, want valid", report)
	}
}

func TestHandleUnrecognizedCommand(t *testing.T) {
	f := newFixture(t)

	result, err := f.orch.Handle(context.Background(), actorCtx("staff-1", domain.RoleStaff), "purple monkey dishwasher")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if result.Final == nil || result.Final.OK {
		t.Fatalf("Handle() final = %+v, want a polite failure", result.Final)
	}
	if result.Final.Message == "" {
		t.Error("unrecognized command produced no message")
	}
}

func TestHandleValidatesContext(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		rctx domain.RequestContext
	}{
		{"missing tenant", domain.RequestContext{Actor: domain.Actor{UserID: "u", Role: domain.RoleStaff}, Now: baseNow}},
		{"missing actor", domain.RequestContext{TenantID: "t1", Now: baseNow}},
		{"bad role", domain.RequestContext{Actor: domain.Actor{UserID: "u", Role: "superuser"}, TenantID: "t1", Now: baseNow}},
		{"zero time", domain.RequestContext{Actor: domain.Actor{UserID: "u", Role: domain.RoleStaff}, TenantID: "t1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orch.Handle(context.Background(), tt.rctx, "Book a haircut")
			if domain.CodeOf(err) != domain.ErrorCodeValidation {
				t.Errorf("Handle() code = %v, want VALIDATION", domain.CodeOf(err))
			}
		})
	}
}

func TestResumeSuppliedEntitiesOverlayExtraction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rctx := actorCtx("acct-1", domain.RoleAccountant)

	// Mint against the exact entities the structured caller will pin.
	first, _ := f.orch.Handle(ctx, rctx, "Record a payment of $75.50 from jane@example.com")
	if flow.StateOf(first) != flow.StateConfirmPending {
		t.Fatalf("StateOf() = %v, want confirm_pending", flow.StateOf(first))
	}
	token := first.Steps[len(first.Steps)-1].Token

	// Supplying the same values explicitly must still match the token
	// binding: the overlay changes provenance, not content.
	rctx.Now = baseNow.Add(time.Minute)
	result, err := f.orch.Resume(ctx, rctx, token, "Record a payment of $75.50 from jane@example.com",
		map[string]any{"email": "jane@example.com", "amount": 75.50})
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if result.Final == nil || !result.Final.OK {
		t.Errorf("Resume() final = %+v, want OK", result.Final)
	}
}

// opsSpine declares no entity fields and returns a zero-value extraction,
// the minimal contract a spine can fulfill.
type opsSpine struct {
	lastInput map[string]any
}

func (s *opsSpine) Name() string { return "ops" }

func (s *opsSpine) Detect(text string, rctx domain.RequestContext) []domain.Intent {
	return []domain.Intent{{Name: "ping", Confidence: 0.9}}
}

func (s *opsSpine) Extract(it domain.Intent, text string, rctx domain.RequestContext) domain.Extraction {
	return domain.Extraction{}
}

func (s *opsSpine) Action(name string) (spine.ActionSpec, bool) {
	if name != "ping" {
		return spine.ActionSpec{}, false
	}
	return spine.ActionSpec{
		Name:         "ping",
		Sensitivity:  domain.SensitivityLow,
		AllowedRoles: []domain.Role{domain.RoleStaff},
		Tool:         "ops.ping",
	}, true
}

func (s *opsSpine) Tools() []tool.Tool {
	return []tool.Tool{tool.Func{ToolName: "ops.ping", Fn: func(ctx context.Context, call tool.Call) (tool.Result, error) {
		s.lastInput = call.Input
		return tool.Result{OK: true}, nil
	}}}
}

func TestResumeOverlaysOntoSpineWithoutEntities(t *testing.T) {
	s := &opsSpine{}
	spines := spine.NewRegistry()
	spines.MustRegister(s)

	tools := tool.NewRegistry()
	for _, tl := range s.Tools() {
		tools.MustRegister(tl)
	}

	auditLog := audit.NewLogger(memory.NewAuditSink())
	issuer := confirm.NewIssuer([]byte("test-secret"), 5*time.Minute, memory.NewTokenStore())
	engine := policy.NewEngine(stepup.DenyAll{})
	orch := New(spines, intent.NewDetector(spines), flow.NewBuilder(spines, issuer),
		flow.NewRunner(tools, spines, engine, auditLog, issuer, time.Second, nil), nil)

	result, err := orch.Resume(context.Background(), actorCtx("staff-1", domain.RoleStaff),
		"stale-token", "ping", map[string]any{"target": "db-1"})
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if result.Final == nil || !result.Final.OK {
		t.Fatalf("Resume() final = %+v, want OK", result.Final)
	}
	if s.lastInput["target"] != "db-1" {
		t.Errorf("tool input = %v, want supplied target db-1", s.lastInput)
	}
}
