package recurrence

import (
	"strings"

	"github.com/teambition/rrule-go"
)

// Shorthands accepted in place of a full RRULE.
var shorthands = map[string]string{
	"WEEKLY":   "FREQ=WEEKLY",
	"BIWEEKLY": "FREQ=WEEKLY;INTERVAL=2",
}

// IntervalDays interprets a normalized recurrence rule. Weekly cadence is 7 days,
// weekly with INTERVAL=2 is 14 days; every other rule, including an empty one, is
// reported as not recurring.
func IntervalDays(rule string) (int, bool) {
	normalized := Normalize(rule)
	if normalized == "" {
		return 0, false
	}
	opt, err := rrule.StrToROption(normalized)
	if err != nil || opt.Freq != rrule.WEEKLY {
		return 0, false
	}
	switch opt.Interval {
	case 0, 1:
		return 7, true
	case 2:
		return 14, true
	default:
		return 0, false
	}
}

// Normalize upper-cases rule, strips an RRULE: prefix and expands shorthands.
func Normalize(rule string) string {
	s := strings.ToUpper(strings.TrimSpace(rule))
	s = strings.TrimPrefix(s, "RRULE:")
	s = strings.TrimSuffix(s, ";")
	if full, ok := shorthands[s]; ok {
		return full
	}
	return s
}
