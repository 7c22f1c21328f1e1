package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const DayLayout = "2006-01-02"

// NormalizeDay pins t's calendar day to 12:00 UTC so the day survives any
// timezone conversion within ±11h.
func NormalizeDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC)
}

// ParseDay accepts a bare date, RFC3339 or a naive timestamp and returns the calendar
// day it names, normalized with NormalizeDay.
func ParseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	formats := []string{DayLayout, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04"}
	for _, format := range formats {
		if parsed, err := time.Parse(format, raw); err == nil {
			return NormalizeDay(parsed), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

func DayString(t time.Time) string {
	return t.Format(DayLayout)
}

// AddDays moves a normalized day by n calendar days.
func AddDays(day time.Time, n int) time.Time {
	return NormalizeDay(day.AddDate(0, 0, n))
}

// ParseClock validates a local HH:mm time of day.
func ParseClock(raw string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, 0, errors.New("time must be HH:mm")
	}
	return t.Hour(), t.Minute(), nil
}

// At returns the instant of clock on day in loc.
func At(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	h, m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, loc), nil
}

// WeekStart returns the Monday of day's week.
func WeekStart(day time.Time) time.Time {
	day = NormalizeDay(day)
	offset := (int(day.Weekday()) + 6) % 7
	return AddDays(day, -offset)
}
