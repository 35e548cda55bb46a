package intent

import (
	"strings"
	"unicode"

	"github.com/Ayejay3194/business-spine/internal/domain"
)

// Pattern declares one keyword rule that recognizes an action. Matching is
// case-insensitive and token-based, so "Book" matches but "rebooking" does
// not.
type Pattern struct {
	// Action is the intent name emitted on a match.
	Action string

	// All lists keywords that must all appear in the text.
	All []string

	// Any lists alternatives of which at least one must appear. Empty
	// means no additional requirement.
	Any []string

	// Confidence is the fixed confidence emitted on a match, in [0,1].
	// Fixed values keep detection deterministic and rankings explainable.
	Confidence float64
}

// Match evaluates patterns against text and returns an intent per matching
// pattern, in pattern declaration order. Spines implement their Detect
// method with it.
func Match(text string, patterns []Pattern) []domain.Intent {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	var out []domain.Intent
	for _, p := range patterns {
		matched, hit := p.matches(tokens)
		if !matched {
			continue
		}
		out = append(out, domain.Intent{
			Name:       p.Action,
			Confidence: p.Confidence,
			Match:      hit,
		})
	}
	return out
}

func (p Pattern) matches(tokens map[string]bool) (bool, string) {
	hit := ""
	for _, kw := range p.All {
		if !tokens[kw] {
			return false, ""
		}
		if hit == "" {
			hit = kw
		}
	}

	if len(p.Any) == 0 {
		return true, hit
	}
	for _, kw := range p.Any {
		if tokens[kw] {
			if hit == "" {
				hit = kw
			}
			return true, hit
		}
	}
	return false, ""
}

func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, field := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		tokens[field] = true
	}
	return tokens
}
