// Package audit provides the tamper-evident, hash-chained audit log.
//
// Every policy decision and execution outcome appends exactly one event.
// Each event's hash covers its own canonical serialization plus the
// previous event's hash, so a retroactive edit to any event invalidates
// every hash after it. Chains are scoped per tenant: tenant isolation is
// already the partition boundary for reads, and per-tenant chains let
// unrelated tenants append concurrently.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Ayejay3194/business-spine/internal/domain"
)

// Sink persists audit events. The core only requires append plus ordered
// read-back; the storage engine is a collaborator concern.
type Sink interface {
	// Write persists one event. Must preserve append order per tenant.
	Write(ctx context.Context, event domain.AuditEvent) error

	// List returns a tenant's events in append order.
	List(ctx context.Context, tenantID string) ([]domain.AuditEvent, error)

	// TailHash returns the hash of a tenant's most recent event, or empty
	// if the chain has no events yet.
	TailHash(ctx context.Context, tenantID string) (string, error)
}

// Logger appends hash-chained events to a sink. Appends to the same tenant
// chain serialize through a per-chain mutex; two events can never claim the
// same prev_hash.
type Logger struct {
	sink Sink

	mu     sync.Mutex
	chains map[string]*sync.Mutex
}

// NewLogger creates a logger over the given sink.
func NewLogger(sink Sink) *Logger {
	return &Logger{
		sink:   sink,
		chains: make(map[string]*sync.Mutex),
	}
}

func (l *Logger) chainLock(tenantID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.chains[tenantID]
	if !ok {
		m = &sync.Mutex{}
		l.chains[tenantID] = m
	}
	return m
}

// Append assigns an ID if missing, links the event to its tenant's chain
// tail, computes the chained hash, and persists it. The returned event has
// PrevHash and Hash set.
func (l *Logger) Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	if event.TenantID == "" {
		return domain.AuditEvent{}, domain.ErrValidation("audit event missing tenant id")
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	lock := l.chainLock(event.TenantID)
	lock.Lock()
	defer lock.Unlock()

	prev, err := l.sink.TailHash(ctx, event.TenantID)
	if err != nil {
		return domain.AuditEvent{}, fmt.Errorf("audit tail lookup: %w", err)
	}

	event.PrevHash = prev
	event.Hash, err = EventHash(event)
	if err != nil {
		return domain.AuditEvent{}, fmt.Errorf("audit hash: %w", err)
	}

	if err := l.sink.Write(ctx, event); err != nil {
		return domain.AuditEvent{}, fmt.Errorf("audit write: %w", err)
	}
	return event, nil
}

// List returns a tenant's events in append order.
func (l *Logger) List(ctx context.Context, tenantID string) ([]domain.AuditEvent, error) {
	return l.sink.List(ctx, tenantID)
}

// EventHash computes the chained SHA-256 hash of an event: the digest of
// the event's canonical serialization concatenated with its PrevHash. The
// stored Hash field is excluded from the input.
func EventHash(event domain.AuditEvent) (string, error) {
	payload := event
	payload.Hash = ""
	payload.PrevHash = ""

	// AuditEvent has only scalar fields, so json.Marshal field order is
	// the struct declaration order and the serialization is canonical.
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write(data)
	h.Write([]byte(event.PrevHash))
	return hex.EncodeToString(h.Sum(nil)), nil
}
