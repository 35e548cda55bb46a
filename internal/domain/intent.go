package domain

// Intent is one candidate interpretation of a raw command, produced by the
// intent detector. Detectors may return several, ordered by descending
// confidence.
type Intent struct {
	// Spine names the business domain that recognized the command.
	Spine string `json:"spine"`

	// Name is the action identifier within the spine, e.g. "book_appointment".
	Name string `json:"name"`

	// Confidence is in [0,1].
	Confidence float64 `json:"confidence"`

	// Match is the text fragment that triggered the detection.
	Match string `json:"match,omitempty"`
}

// Extraction holds the structured entities derived from a command, plus the
// required fields that could not be derived. Extractors never guess: an
// unresolvable field goes to Missing so the flow can ask for it instead of
// executing an irreversible action on a fabricated value.
type Extraction struct {
	Entities map[string]any `json:"entities"`
	Missing  []string       `json:"missing,omitempty"`
}

// Complete reports whether every required field was resolved.
func (e Extraction) Complete() bool {
	return len(e.Missing) == 0
}
