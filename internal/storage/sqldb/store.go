// Package sqldb provides the SQL-backed audit sink and confirmation-token
// store. SQLite (pure Go driver) is the default engine; the dialect layer
// keeps the queries portable.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/Ayejay3194/business-spine/internal/audit"
	"github.com/Ayejay3194/business-spine/internal/confirm"
	"github.com/Ayejay3194/business-spine/internal/domain"
	"github.com/Ayejay3194/business-spine/internal/storage/dialect"
)

// Store implements audit.Sink and confirm.Store over a SQL database.
type Store struct {
	db      *sqlx.DB
	dialect dialect.Dialect
}

var (
	_ audit.Sink    = (*Store)(nil)
	_ confirm.Store = (*Store)(nil)
)

// Config holds database connection configuration.
type Config struct {
	Driver string // Driver name: sqlite, postgres
	DSN    string // Data source name / connection string
}

// New opens the database, runs dialect initialization, and creates the
// schema if needed.
func New(cfg Config) (*Store, error) {
	d, err := dialect.FromDriverName(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("unsupported database driver: %w", err)
	}

	db, err := sqlx.Open(d.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, stmt := range d.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize session: %w", err)
		}
	}

	store := &Store{db: db, dialect: d}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// NewSQLite opens a SQLite store at the given path.
func NewSQLite(dbPath string) (*Store, error) {
	return New(Config{Driver: "sqlite", DSN: dbPath})
}

func (s *Store) initSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS audit_events (
			seq           INTEGER PRIMARY KEY AUTOINCREMENT,
			id            TEXT NOT NULL UNIQUE,
			tenant_id     TEXT NOT NULL,
			ts            TEXT NOT NULL,
			actor_user_id TEXT NOT NULL,
			actor_role    TEXT NOT NULL,
			action        TEXT NOT NULL,
			target        TEXT NOT NULL DEFAULT '',
			input_summary TEXT NOT NULL DEFAULT '',
			outcome       TEXT NOT NULL,
			reason        TEXT NOT NULL DEFAULT '',
			prev_hash     TEXT NOT NULL DEFAULT '',
			hash          TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_events_tenant ON audit_events(tenant_id, seq)`,
		`CREATE TABLE IF NOT EXISTS confirm_tokens (
			token      TEXT PRIMARY KEY,
			expires_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// DB returns the underlying sqlx.DB for advanced operations.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type auditRow struct {
	ID           string `db:"id"`
	TenantID     string `db:"tenant_id"`
	TS           string `db:"ts"`
	ActorUserID  string `db:"actor_user_id"`
	ActorRole    string `db:"actor_role"`
	Action       string `db:"action"`
	Target       string `db:"target"`
	InputSummary string `db:"input_summary"`
	Outcome      string `db:"outcome"`
	Reason       string `db:"reason"`
	PrevHash     string `db:"prev_hash"`
	Hash         string `db:"hash"`
}

func (r auditRow) toEvent() (domain.AuditEvent, error) {
	ts, err := time.Parse(time.RFC3339Nano, r.TS)
	if err != nil {
		return domain.AuditEvent{}, fmt.Errorf("parsing audit timestamp: %w", err)
	}
	return domain.AuditEvent{
		ID:           r.ID,
		TS:           ts,
		TenantID:     r.TenantID,
		ActorUserID:  r.ActorUserID,
		ActorRole:    domain.Role(r.ActorRole),
		Action:       r.Action,
		Target:       r.Target,
		InputSummary: r.InputSummary,
		Outcome:      domain.Outcome(r.Outcome),
		Reason:       r.Reason,
		PrevHash:     r.PrevHash,
		Hash:         r.Hash,
	}, nil
}

// Write persists one audit event. Insert order defines the chain's read
// order, so callers must serialize appends per tenant (audit.Logger does).
func (s *Store) Write(ctx context.Context, event domain.AuditEvent) error {
	query := s.dialect.Rebind(`INSERT INTO audit_events
		(id, tenant_id, ts, actor_user_id, actor_role, action, target, input_summary, outcome, reason, prev_hash, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.TenantID,
		event.TS.UTC().Format(time.RFC3339Nano),
		event.ActorUserID,
		string(event.ActorRole),
		event.Action,
		event.Target,
		event.InputSummary,
		string(event.Outcome),
		event.Reason,
		event.PrevHash,
		event.Hash,
	)
	if err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

// List returns a tenant's audit events in append order.
func (s *Store) List(ctx context.Context, tenantID string) ([]domain.AuditEvent, error) {
	query := s.dialect.Rebind(`SELECT id, tenant_id, ts, actor_user_id, actor_role, action, target, input_summary, outcome, reason, prev_hash, hash
		FROM audit_events WHERE tenant_id = ? ORDER BY seq ASC`)

	var rows []auditRow
	if err := s.db.SelectContext(ctx, &rows, query, tenantID); err != nil {
		return nil, fmt.Errorf("listing audit events: %w", err)
	}

	events := make([]domain.AuditEvent, 0, len(rows))
	for _, r := range rows {
		event, err := r.toEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// TailHash returns the hash of a tenant's most recent audit event.
func (s *Store) TailHash(ctx context.Context, tenantID string) (string, error) {
	query := s.dialect.Rebind(`SELECT hash FROM audit_events WHERE tenant_id = ? ORDER BY seq DESC LIMIT 1`)

	var hash string
	err := s.db.GetContext(ctx, &hash, query, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading chain tail: %w", err)
	}
	return hash, nil
}

// Put records a freshly minted confirmation token.
func (s *Store) Put(ctx context.Context, token string, expiresAt time.Time) error {
	query := s.dialect.Rebind(`INSERT INTO confirm_tokens (token, expires_at) VALUES (?, ?) ` +
		s.dialect.UpsertClause("token", []string{"expires_at"}))

	_, err := s.db.ExecContext(ctx, query, token, expiresAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("storing confirmation token: %w", err)
	}
	return nil
}

// Take consumes a confirmation token. The single DELETE makes consumption
// atomic across orchestrator instances sharing the database.
func (s *Store) Take(ctx context.Context, token string, now time.Time) (bool, error) {
	query := s.dialect.Rebind(`DELETE FROM confirm_tokens WHERE token = ? AND expires_at > ?`)

	res, err := s.db.ExecContext(ctx, query, token, now.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return false, fmt.Errorf("consuming confirmation token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
