package audit

import "github.com/Ayejay3194/business-spine/internal/domain"

// Report is the result of verifying a chain.
type Report struct {
	Valid bool `json:"valid"`

	// TamperedIDs lists every event whose stored hash does not match the
	// recomputation, or whose prev_hash disagrees with its predecessor.
	// Once a link breaks, every later event is flagged: its recorded
	// lineage can no longer be trusted.
	TamperedIDs []string `json:"tampered_ids,omitempty"`
}

// VerifyChain recomputes each hash in the given order and flags mismatches.
// It needs only the events themselves, so it can run offline against an
// exported log, independent of the live system.
func VerifyChain(events []domain.AuditEvent) Report {
	report := Report{Valid: true}

	prev := ""
	broken := false
	for _, event := range events {
		ok := !broken
		if ok && event.PrevHash != prev {
			ok = false
		}
		if ok {
			expected, err := EventHash(event)
			if err != nil || expected != event.Hash {
				ok = false
			}
		}

		if !ok {
			broken = true
			report.Valid = false
			report.TamperedIDs = append(report.TamperedIDs, event.ID)
		}
		prev = event.Hash
	}
	return report
}
