// Package intent maps raw command text to ranked candidate intents.
//
// Detection is deterministic keyword and pattern matching; no model is
// consulted for control decisions, so identical input always produces
// identical candidates and every decision is reproducible from the audit
// trail.
package intent

import (
	"sort"

	"github.com/Ayejay3194/business-spine/internal/domain"
	"github.com/Ayejay3194/business-spine/internal/spine"
)

// Detector aggregates intent candidates from every registered spine.
type Detector struct {
	spines *spine.Registry
}

// NewDetector creates a detector over the spine registry.
func NewDetector(spines *spine.Registry) *Detector {
	return &Detector{spines: spines}
}

// Detect returns candidate intents ordered by descending confidence. It is
// pure and total: no match yields an empty slice, never an error.
// Confidence ties are broken by spine declaration order, which a stable
// sort preserves.
func (d *Detector) Detect(text string, rctx domain.RequestContext) []domain.Intent {
	var candidates []domain.Intent
	for _, s := range d.spines.Spines() {
		for _, intent := range s.Detect(text, rctx) {
			intent.Spine = s.Name()
			intent.Confidence = clamp(intent.Confidence)
			candidates = append(candidates, intent)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates
}

func clamp(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
