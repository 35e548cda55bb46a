package billing

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// InvoiceStatus tracks an invoice's lifecycle.
type InvoiceStatus string

const (
	InvoiceStatusOpen InvoiceStatus = "open"
	InvoiceStatusPaid InvoiceStatus = "paid"
)

// Invoice is one issued invoice.
type Invoice struct {
	ID       string        `json:"id"`
	TenantID string        `json:"tenant_id"`
	Email    string        `json:"email"`
	Amount   float64       `json:"amount"`
	Status   InvoiceStatus `json:"status"`
}

// Payment is one recorded payment or refund (negative amount).
type Payment struct {
	ID       string  `json:"id"`
	TenantID string  `json:"tenant_id"`
	Email    string  `json:"email"`
	Amount   float64 `json:"amount"`
}

// Repository is the persistence boundary for billing records.
type Repository interface {
	CreateInvoice(ctx context.Context, invoice Invoice) (Invoice, error)
	LatestInvoice(ctx context.Context, tenantID, email string) (Invoice, bool, error)
	RecordPayment(ctx context.Context, payment Payment) (Payment, error)
	Refund(ctx context.Context, payment Payment) (Payment, error)
}

// Notifier delivers invoices to clients. Delivery (SMS/email) is a
// collaborator concern behind this interface.
type Notifier interface {
	SendInvoice(ctx context.Context, email string, invoice Invoice) error
}

// MemoryRepository is an in-memory Repository for tests and development.
type MemoryRepository struct {
	mu       sync.RWMutex
	invoices map[string][]Invoice // tenantID -> invoices
	payments map[string][]Payment // tenantID -> payments
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		invoices: make(map[string][]Invoice),
		payments: make(map[string][]Payment),
	}
}

func (r *MemoryRepository) CreateInvoice(ctx context.Context, invoice Invoice) (Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	invoice.ID = uuid.New().String()
	r.invoices[invoice.TenantID] = append(r.invoices[invoice.TenantID], invoice)
	return invoice, nil
}

func (r *MemoryRepository) LatestInvoice(ctx context.Context, tenantID, email string) (Invoice, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	invoices := r.invoices[tenantID]
	for i := len(invoices) - 1; i >= 0; i-- {
		if invoices[i].Email == email {
			return invoices[i], true, nil
		}
	}
	return Invoice{}, false, nil
}

func (r *MemoryRepository) RecordPayment(ctx context.Context, payment Payment) (Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payment.ID = uuid.New().String()
	r.payments[payment.TenantID] = append(r.payments[payment.TenantID], payment)
	return payment, nil
}

func (r *MemoryRepository) Refund(ctx context.Context, payment Payment) (Payment, error) {
	return r.RecordPayment(ctx, payment)
}

// LogNotifier logs invoice sends instead of delivering them. The default
// when no delivery collaborator is wired.
type LogNotifier struct {
	logger *slog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a notifier that only logs.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendInvoice(ctx context.Context, email string, invoice Invoice) error {
	n.logger.Info("invoice send requested",
		slog.String("email", email),
		slog.String("invoice_id", invoice.ID),
		slog.Float64("amount", invoice.Amount),
	)
	return nil
}
