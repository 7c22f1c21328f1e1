package recurrence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntervalDays(t *testing.T) {
	cases := []struct {
		rule   string
		days   int
		wantOK bool
	}{
		{"FREQ=WEEKLY", 7, true},
		{"RRULE:FREQ=WEEKLY;INTERVAL=1", 7, true},
		{"freq=weekly;interval=2", 14, true},
		{"FREQ=WEEKLY;INTERVAL=2;BYDAY=MO", 14, true},
		{"weekly", 7, true},
		{"BIWEEKLY", 14, true},
		{"FREQ=WEEKLY;INTERVAL=3", 0, false},
		{"FREQ=DAILY", 0, false},
		{"FREQ=MONTHLY;INTERVAL=2", 0, false},
		{"every other tuesday", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		days, ok := IntervalDays(tc.rule)
		assert.Equal(t, tc.wantOK, ok, "rule %q", tc.rule)
		assert.Equal(t, tc.days, days, "rule %q", tc.rule)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "FREQ=WEEKLY;INTERVAL=2", Normalize(" rrule:freq=weekly;interval=2; "))
	assert.Equal(t, "FREQ=WEEKLY", Normalize("Weekly"))
	assert.Equal(t, "", Normalize("   "))
}
