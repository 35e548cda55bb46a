// Package memory provides in-memory implementations of the audit sink and
// the confirmation-token store, for tests and single-instance deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Ayejay3194/business-spine/internal/audit"
	"github.com/Ayejay3194/business-spine/internal/confirm"
	"github.com/Ayejay3194/business-spine/internal/domain"
)

// AuditSink is an in-memory implementation of audit.Sink.
type AuditSink struct {
	mu     sync.RWMutex
	chains map[string][]domain.AuditEvent
}

var _ audit.Sink = (*AuditSink)(nil)

// NewAuditSink creates an empty in-memory sink.
func NewAuditSink() *AuditSink {
	return &AuditSink{
		chains: make(map[string][]domain.AuditEvent),
	}
}

func (s *AuditSink) Write(ctx context.Context, event domain.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chains[event.TenantID] = append(s.chains[event.TenantID], event)
	return nil
}

func (s *AuditSink) List(ctx context.Context, tenantID string) ([]domain.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.chains[tenantID]
	out := make([]domain.AuditEvent, len(chain))
	copy(out, chain)
	return out, nil
}

func (s *AuditSink) TailHash(ctx context.Context, tenantID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.chains[tenantID]
	if len(chain) == 0 {
		return "", nil
	}
	return chain[len(chain)-1].Hash, nil
}

// TokenStore is an in-memory implementation of confirm.Store.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time
}

var _ confirm.Store = (*TokenStore)(nil)

// NewTokenStore creates an empty in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		tokens: make(map[string]time.Time),
	}
}

func (s *TokenStore) Put(ctx context.Context, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token] = expiresAt
	return nil
}

func (s *TokenStore) Take(ctx context.Context, token string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Opportunistic sweep keeps the map from accumulating expired entries.
	for t, exp := range s.tokens {
		if !exp.After(now) {
			delete(s.tokens, t)
		}
	}

	exp, ok := s.tokens[token]
	if !ok || !exp.After(now) {
		return false, nil
	}
	delete(s.tokens, token)
	return true, nil
}
