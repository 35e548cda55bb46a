package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Ayejay3194/business-spine/internal/domain"
)

var (
	emailPattern    = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	moneyPattern    = regexp.MustCompile(`\$\s*(\d+(?:\.\d{1,2})?)`)
	clockPattern    = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	clock24Pattern  = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	durationPattern = regexp.MustCompile(`(?i)\b(\d+)\s*(minutes|minute|mins|min|m|hours|hour|hrs|hr|h)\b`)
)

func parseEmail(text string) (any, bool) {
	m := emailPattern.FindString(text)
	if m == "" {
		return nil, false
	}
	return strings.ToLower(m), true
}

func parseMoney(text string) (any, bool) {
	m := moneyPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, false
	}
	return amount, true
}

// parseDateTime resolves phrases like "tomorrow 3pm" or "today 15:30"
// against the request's logical now and timezone. Both a day word and a
// clock time are required; anything less would be a guess.
func parseDateTime(text string, rctx domain.RequestContext) (any, bool) {
	lower := strings.ToLower(text)

	var dayOffset int
	switch {
	case strings.Contains(lower, "tomorrow"):
		dayOffset = 1
	case strings.Contains(lower, "today"):
		dayOffset = 0
	default:
		return nil, false
	}

	hour, minute, ok := parseClock(text)
	if !ok {
		return nil, false
	}

	loc := rctx.Location()
	base := rctx.Now.In(loc).AddDate(0, 0, dayOffset)
	resolved := time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, loc)
	return resolved.Format(time.RFC3339), true
}

func parseClock(text string) (hour, minute int, ok bool) {
	if m := clockPattern.FindStringSubmatch(text); m != nil {
		hour, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour < 1 || hour > 12 || minute > 59 {
			return 0, 0, false
		}
		if strings.EqualFold(m[3], "pm") && hour != 12 {
			hour += 12
		}
		if strings.EqualFold(m[3], "am") && hour == 12 {
			hour = 0
		}
		return hour, minute, true
	}

	if m := clock24Pattern.FindStringSubmatch(text); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return 0, 0, false
		}
		return hour, minute, true
	}
	return 0, 0, false
}

func parseDuration(text string) (any, bool) {
	m := durationPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return nil, false
	}
	switch strings.ToLower(m[2])[0] {
	case 'h':
		return n * 60, true
	default:
		return n, true
	}
}
