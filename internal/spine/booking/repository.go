package booking

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Appointment is one booked slot.
type Appointment struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	ClientEmail string `json:"client_email"`
	Service     string `json:"service"`
	Start       string `json:"start"`
	DurationMin int    `json:"duration_min"`
}

// Repository is the persistence boundary for appointments. The underlying
// store is a collaborator; the spine never assumes a storage backend.
type Repository interface {
	Create(ctx context.Context, appt Appointment) (Appointment, error)
	CancelByEmail(ctx context.Context, tenantID, email string) (int, error)
	ListByTenant(ctx context.Context, tenantID string) ([]Appointment, error)
}

// MemoryRepository is an in-memory Repository for tests and development.
type MemoryRepository struct {
	mu    sync.RWMutex
	appts map[string][]Appointment // tenantID -> appointments
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		appts: make(map[string][]Appointment),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, appt Appointment) (Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt.ID = uuid.New().String()
	r.appts[appt.TenantID] = append(r.appts[appt.TenantID], appt)
	return appt, nil
}

func (r *MemoryRepository) CancelByEmail(ctx context.Context, tenantID, email string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []Appointment
	cancelled := 0
	for _, appt := range r.appts[tenantID] {
		if appt.ClientEmail == email {
			cancelled++
			continue
		}
		kept = append(kept, appt)
	}
	r.appts[tenantID] = kept
	return cancelled, nil
}

func (r *MemoryRepository) ListByTenant(ctx context.Context, tenantID string) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Appointment, len(r.appts[tenantID]))
	copy(out, r.appts[tenantID])
	return out, nil
}
