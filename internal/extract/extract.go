// Package extract derives structured entities from command text.
//
// Extraction is pure over (text, request context) and never guesses: a
// required field that cannot be derived is reported as missing so the flow
// asks for it, because downstream execute steps are irreversible business
// actions. Spines declare their fields per intent and delegate the parsing
// to the shared kinds here.
package extract

import (
	"regexp"

	"github.com/Ayejay3194/business-spine/internal/domain"
)

// Kind selects a built-in parser for a field.
type Kind string

const (
	// KindEmail extracts the first email address in the text.
	KindEmail Kind = "email"

	// KindMoney extracts a dollar amount as a float64.
	KindMoney Kind = "money"

	// KindDateTime extracts a date/time phrase (today/tomorrow plus a
	// clock time) resolved against the request context's logical now and
	// timezone, as an RFC 3339 string.
	KindDateTime Kind = "datetime"

	// KindDuration extracts a duration phrase as whole minutes.
	KindDuration Kind = "duration"

	// KindText extracts the first capture group of the field's Pattern.
	KindText Kind = "text"
)

// Field declares one entity a spine wants extracted.
type Field struct {
	Name     string
	Kind     Kind
	Required bool

	// Pattern is the capture expression for KindText fields.
	Pattern *regexp.Regexp
}

// Run extracts the declared fields from text. Required fields that cannot
// be derived are listed in Missing in declaration order.
func Run(fields []Field, text string, rctx domain.RequestContext) domain.Extraction {
	extraction := domain.Extraction{Entities: make(map[string]any)}

	for _, f := range fields {
		value, ok := f.parse(text, rctx)
		if ok {
			extraction.Entities[f.Name] = value
			continue
		}
		if f.Required {
			extraction.Missing = append(extraction.Missing, f.Name)
		}
	}
	return extraction
}

func (f Field) parse(text string, rctx domain.RequestContext) (any, bool) {
	switch f.Kind {
	case KindEmail:
		return parseEmail(text)
	case KindMoney:
		return parseMoney(text)
	case KindDateTime:
		return parseDateTime(text, rctx)
	case KindDuration:
		return parseDuration(text)
	case KindText:
		if f.Pattern == nil {
			return nil, false
		}
		m := f.Pattern.FindStringSubmatch(text)
		if len(m) < 2 || m[1] == "" {
			return nil, false
		}
		return m[1], true
	}
	return nil, false
}
