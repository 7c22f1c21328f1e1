package model

import (
	"testing"
	"time"
)

func TestParseDayNormalizesToNoonUTC(t *testing.T) {
	cases := map[string]string{
		"2024-01-01":                "2024-01-01",
		"2024-03-10T23:30:00-08:00": "2024-03-10",
		"2024-03-10T00:15:00+09:00": "2024-03-10",
		"2024-12-31T08:00:00":       "2024-12-31",
	}
	for raw, want := range cases {
		got, err := ParseDay(raw)
		if err != nil {
			t.Fatalf("ParseDay(%q) failed: %v", raw, err)
		}
		if DayString(got) != want {
			t.Fatalf("ParseDay(%q) = %s, want %s", raw, DayString(got), want)
		}
		if got.Hour() != 12 || got.Location() != time.UTC {
			t.Fatalf("ParseDay(%q) not normalized: %s", raw, got)
		}
	}
	if _, err := ParseDay("31/12/2024"); err == nil {
		t.Fatal("expected error for unsupported layout")
	}
}

func TestWeekStartIsMonday(t *testing.T) {
	sunday := time.Date(2024, time.January, 7, 12, 0, 0, 0, time.UTC)
	if got := DayString(WeekStart(sunday)); got != "2024-01-01" {
		t.Fatalf("expected Monday 2024-01-01, got %s", got)
	}
	monday := time.Date(2024, time.January, 8, 12, 0, 0, 0, time.UTC)
	if got := DayString(WeekStart(monday)); got != "2024-01-08" {
		t.Fatalf("expected same Monday, got %s", got)
	}
}

func TestAtUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	day := NormalizeDay(time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC))
	at, err := At(day, "17:30", loc)
	if err != nil {
		t.Fatalf("At failed: %v", err)
	}
	if want := time.Date(2024, time.June, 3, 22, 30, 0, 0, time.UTC); !at.Equal(want) {
		t.Fatalf("expected %s, got %s", want, at.UTC())
	}
	if _, err := At(day, "25:00", loc); err == nil {
		t.Fatal("expected error for invalid clock")
	}
}
