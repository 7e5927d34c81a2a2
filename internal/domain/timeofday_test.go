package domain

import (
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("09:30")
	if err != nil {
		t.Fatalf("ParseTimeOfDay error: %v", err)
	}
	if got.Hour() != 9 || got.Minute() != 30 {
		t.Fatalf("got %02d:%02d, want 09:30", got.Hour(), got.Minute())
	}
	if got.String() != "09:30" {
		t.Fatalf("String() = %q, want %q", got.String(), "09:30")
	}

	for _, bad := range []string{"", "9", "25:00", "09:61", "half past nine"} {
		if _, err := ParseTimeOfDay(bad); err == nil {
			t.Fatalf("ParseTimeOfDay(%q) expected error", bad)
		}
	}
}

func TestWeekdayIndex(t *testing.T) {
	// 2026-01-05 is a Monday.
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		if got := WeekdayIndex(monday.AddDate(0, 0, i)); got != i {
			t.Fatalf("WeekdayIndex(monday+%d) = %d, want %d", i, got, i)
		}
	}
}

func TestCombine(t *testing.T) {
	date := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	got := Combine(date, NewTimeOfDay(9, 30))
	want := time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Combine = %v, want %v", got, want)
	}
}
