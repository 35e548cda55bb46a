package billing

import (
	"context"
	"testing"
	"time"

	"github.com/Ayejay3194/business-spine/internal/domain"
	"github.com/Ayejay3194/business-spine/internal/tool"
)

func billingRctx(role domain.Role) domain.RequestContext {
	return domain.RequestContext{
		Actor:    domain.Actor{UserID: "user-1", Role: role},
		TenantID: "t1",
		Now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDetect(t *testing.T) {
	s := New(NewMemoryRepository(), NewLogNotifier(nil))

	tests := []struct {
		text string
		want string
	}{
		{"Create an invoice for jane@example.com for $250", "create_invoice"},
		{"record a payment of $75 from joe@example.com", "record_payment"},
		{"refund $30 to jane@example.com", "refund_payment"},
	}
	for _, tt := range tests {
		got := s.Detect(tt.text, billingRctx(domain.RoleAccountant))
		if len(got) != 1 || got[0].Name != tt.want {
			t.Errorf("Detect(%q) = %+v, want %s", tt.text, got, tt.want)
		}
	}

	if got := s.Detect("send flowers", billingRctx(domain.RoleAccountant)); len(got) != 0 {
		t.Errorf("Detect(unrelated) = %+v, want none", got)
	}
}

func TestExtract(t *testing.T) {
	s := New(NewMemoryRepository(), NewLogNotifier(nil))

	got := s.Extract(domain.Intent{Name: "create_invoice"},
		"Create an invoice for Jane@Example.com for $250", billingRctx(domain.RoleAccountant))
	if !got.Complete() {
		t.Fatalf("Extract() missing = %v, want complete", got.Missing)
	}
	if got.Entities["email"] != "jane@example.com" || got.Entities["amount"] != 250.0 {
		t.Errorf("Entities = %v", got.Entities)
	}
}

func TestRefundRule(t *testing.T) {
	tests := []struct {
		name      string
		role      domain.Role
		amount    any
		wantAllow bool
	}{
		{"owner above cap", domain.RoleOwner, 5000.0, true},
		{"accountant above cap", domain.RoleAccountant, 5000.0, false},
		{"accountant at cap", domain.RoleAccountant, 1000.0, true},
		{"zero amount", domain.RoleOwner, 0.0, false},
		{"missing amount", domain.RoleOwner, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := refundRule(billingRctx(tt.role), map[string]any{"amount": tt.amount})
			if decision.Allow != tt.wantAllow {
				t.Errorf("refundRule() allow = %v, want %v (reason %q)", decision.Allow, tt.wantAllow, decision.Reason)
			}
		})
	}
}

func TestCreateAndSendInvoiceTools(t *testing.T) {
	repo := NewMemoryRepository()
	s := New(repo, NewLogNotifier(nil))
	ctx := context.Background()
	call := tool.Call{
		Ctx:   billingRctx(domain.RoleAccountant),
		Input: map[string]any{"email": "jane@example.com", "amount": 250.0},
	}

	created, err := s.createInvoiceTool(ctx, call)
	if err != nil || !created.OK {
		t.Fatalf("createInvoiceTool() = (%+v, %v), want OK", created, err)
	}
	invoice, ok := created.Data.(Invoice)
	if !ok || invoice.Amount != 250 || invoice.Status != InvoiceStatusOpen {
		t.Fatalf("created invoice = %+v", created.Data)
	}

	sent, err := s.sendInvoiceTool(ctx, call)
	if err != nil || !sent.OK {
		t.Fatalf("sendInvoiceTool() = (%+v, %v), want OK", sent, err)
	}
}

func TestSendInvoiceWithoutInvoiceFails(t *testing.T) {
	s := New(NewMemoryRepository(), NewLogNotifier(nil))

	result, err := s.sendInvoiceTool(context.Background(), tool.Call{
		Ctx:   billingRctx(domain.RoleAccountant),
		Input: map[string]any{"email": "nobody@example.com"},
	})
	if err != nil {
		t.Fatalf("sendInvoiceTool() error = %v", err)
	}
	if result.OK {
		t.Error("sendInvoiceTool() OK = true with no invoice on file")
	}
}

func TestRefundToolRecordsNegativeAmount(t *testing.T) {
	repo := NewMemoryRepository()
	s := New(repo, NewLogNotifier(nil))

	result, err := s.refundTool(context.Background(), tool.Call{
		Ctx:   billingRctx(domain.RoleOwner),
		Input: map[string]any{"email": "jane@example.com", "amount": 30.0},
	})
	if err != nil || !result.OK {
		t.Fatalf("refundTool() = (%+v, %v), want OK", result, err)
	}
	payment, ok := result.Data.(Payment)
	if !ok || payment.Amount != -30 {
		t.Errorf("refund payment = %+v, want amount -30", result.Data)
	}
}
