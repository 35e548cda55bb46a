// Package billing is the invoicing and payments spine. Every action here
// is high sensitivity: invoices, payments, and refunds are irreversible
// business operations and require step-up confirmation.
package billing

import (
	"context"
	"fmt"

	"github.com/Ayejay3194/business-spine/internal/domain"
	"github.com/Ayejay3194/business-spine/internal/extract"
	"github.com/Ayejay3194/business-spine/internal/intent"
	"github.com/Ayejay3194/business-spine/internal/spine"
	"github.com/Ayejay3194/business-spine/internal/tool"
)

// SpineName is the registry key for this spine.
const SpineName = "billing"

// nonOwnerRefundCap bounds refunds issued by anyone but the owner.
const nonOwnerRefundCap = 1000.0

var patterns = []intent.Pattern{
	{Action: "create_invoice", All: []string{"invoice"}, Any: []string{"create", "make", "new", "send"}, Confidence: 0.88},
	{Action: "record_payment", All: []string{"payment"}, Any: []string{"record", "received", "log"}, Confidence: 0.85},
	{Action: "refund_payment", All: []string{"refund"}, Confidence: 0.9},
}

var moneyFields = []extract.Field{
	{Name: "email", Kind: extract.KindEmail, Required: true},
	{Name: "amount", Kind: extract.KindMoney, Required: true},
}

var fieldsByAction = map[string][]extract.Field{
	"create_invoice": moneyFields,
	"record_payment": moneyFields,
	"refund_payment": moneyFields,
}

// Spine implements spine.Spine for billing.
type Spine struct {
	repo     Repository
	notifier Notifier
	actions  map[string]spine.ActionSpec
}

// New creates the billing spine over a repository and a notifier.
func New(repo Repository, notifier Notifier) *Spine {
	billingRoles := []domain.Role{domain.RoleOwner, domain.RoleAdmin, domain.RoleAccountant, domain.RoleSystem}

	s := &Spine{repo: repo, notifier: notifier}
	s.actions = map[string]spine.ActionSpec{
		"create_invoice": {
			Name:          "create_invoice",
			Sensitivity:   domain.SensitivityHigh,
			AllowedRoles:  billingRoles,
			Tool:          "billing.create_invoice",
			ConfirmPrompt: "Creating an invoice is a sensitive action. Resubmit with the confirmation token to proceed.",
			Rule:          positiveAmountRule,
			Then:          []string{"send_invoice"},
		},
		"send_invoice": {
			Name:         "send_invoice",
			Sensitivity:  domain.SensitivityLow,
			AllowedRoles: billingRoles,
			Tool:         "billing.send_invoice",
		},
		"record_payment": {
			Name:         "record_payment",
			Sensitivity:  domain.SensitivityHigh,
			AllowedRoles: billingRoles,
			Tool:         "billing.record_payment",
			Rule:         positiveAmountRule,
		},
		"refund_payment": {
			Name:         "refund_payment",
			Sensitivity:  domain.SensitivityHigh,
			AllowedRoles: billingRoles,
			Tool:         "billing.refund",
			Rule:         refundRule,
		},
	}
	return s
}

func positiveAmountRule(rctx domain.RequestContext, input map[string]any) domain.PolicyDecision {
	if amountValue(input["amount"]) <= 0 {
		return domain.Denied("amount must be positive")
	}
	return domain.Allowed()
}

// refundRule caps refunds for non-owner actors. Pure over the context and
// input, so the policy engine can evaluate it without I/O.
func refundRule(rctx domain.RequestContext, input map[string]any) domain.PolicyDecision {
	amount := amountValue(input["amount"])
	if amount <= 0 {
		return domain.Denied("amount must be positive")
	}
	if amount > nonOwnerRefundCap && rctx.Actor.Role != domain.RoleOwner {
		return domain.Denied(fmt.Sprintf("refunds above $%.0f require the owner", nonOwnerRefundCap))
	}
	return domain.Allowed()
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
		tool.Func{ToolName: "billing.create_invoice", Fn: s.createInvoiceTool},
		tool.Func{ToolName: "billing.send_invoice", Fn: s.sendInvoiceTool},
		tool.Func{ToolName: "billing.record_payment", Fn: s.recordPaymentTool},
		tool.Func{ToolName: "billing.refund", Fn: s.refundTool},
	}
}

func (s *Spine) createInvoiceTool(ctx context.Context, call tool.Call) (tool.Result, error) {
	email, amount, errMsg := moneyInput(call.Input)
	if errMsg != "" {
		return tool.Result{OK: false, Error: errMsg}, nil
	}

	invoice, err := s.repo.CreateInvoice(ctx, Invoice{
		TenantID: call.Ctx.TenantID,
		Email:    email,
		Amount:   amount,
		Status:   InvoiceStatusOpen,
	})
	if err != nil {
		return tool.Result{OK: false, Error: fmt.Sprintf("creating invoice: %v", err)}, nil
	}
	return tool.Result{OK: true, Data: invoice}, nil
}

func (s *Spine) sendInvoiceTool(ctx context.Context, call tool.Call) (tool.Result, error) {
	email, _ := call.Input["email"].(string)
	if email == "" {
		return tool.Result{OK: false, Error: "sending an invoice requires an email"}, nil
	}

	invoice, found, err := s.repo.LatestInvoice(ctx, call.Ctx.TenantID, email)
	if err != nil {
		return tool.Result{OK: false, Error: fmt.Sprintf("loading invoice: %v", err)}, nil
	}
	if !found {
		return tool.Result{OK: false, Error: fmt.Sprintf("no invoice found for %s", email)}, nil
	}

	if err := s.notifier.SendInvoice(ctx, email, invoice); err != nil {
		return tool.Result{OK: false, Error: fmt.Sprintf("sending invoice: %v", err)}, nil
	}
	return tool.Result{OK: true, Data: map[string]any{"sent_to": email, "invoice_id": invoice.ID}}, nil
}

func (s *Spine) recordPaymentTool(ctx context.Context, call tool.Call) (tool.Result, error) {
	email, amount, errMsg := moneyInput(call.Input)
	if errMsg != "" {
		return tool.Result{OK: false, Error: errMsg}, nil
	}

	payment, err := s.repo.RecordPayment(ctx, Payment{
		TenantID: call.Ctx.TenantID,
		Email:    email,
		Amount:   amount,
	})
	if err != nil {
		return tool.Result{OK: false, Error: fmt.Sprintf("recording payment: %v", err)}, nil
	}
	return tool.Result{OK: true, Data: payment}, nil
}

func (s *Spine) refundTool(ctx context.Context, call tool.Call) (tool.Result, error) {
	email, amount, errMsg := moneyInput(call.Input)
	if errMsg != "" {
		return tool.Result{OK: false, Error: errMsg}, nil
	}

	refund, err := s.repo.Refund(ctx, Payment{
		TenantID: call.Ctx.TenantID,
		Email:    email,
		Amount:   -amount,
	})
	if err != nil {
		return tool.Result{OK: false, Error: fmt.Sprintf("refunding payment: %v", err)}, nil
	}
	return tool.Result{OK: true, Data: refund}, nil
}

func moneyInput(input map[string]any) (email string, amount float64, errMsg string) {
	email, _ = input["email"].(string)
	amount = amountValue(input["amount"])
	if email == "" || amount == 0 {
		return "", 0, "this action requires an email and an amount"
	}
	return email, amount, ""
}

func amountValue(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}
