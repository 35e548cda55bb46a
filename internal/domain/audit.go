package domain

import "time"

// Outcome records how an execute step ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeBlocked Outcome = "blocked"
)

// AuditEvent is one line in the hash-chained audit log. Events are
// append-only: never updated or deleted once written. All fields are
// scalars (no maps) so json.Marshal produces a deterministic field order
// for reproducible hashing.
type AuditEvent struct {
	ID           string    `json:"id"`
	TS           time.Time `json:"ts"`
	TenantID     string    `json:"tenant_id"`
	ActorUserID  string    `json:"actor_user_id"`
	ActorRole    Role      `json:"actor_role"`
	Action       string    `json:"action"`
	Target       string    `json:"target,omitempty"`
	InputSummary string    `json:"input_summary,omitempty"`
	Outcome      Outcome   `json:"outcome"`
	Reason       string    `json:"reason,omitempty"`

	// PrevHash is the hash of the chain's previous event, empty for the
	// first event of a chain.
	PrevHash string `json:"prev_hash,omitempty"`

	// Hash covers the event's own content plus PrevHash, so any
	// retroactive edit invalidates every subsequent hash.
	Hash string `json:"hash,omitempty"`
}
