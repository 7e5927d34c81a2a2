package domain

import (
	"fmt"
	"time"
)

// TimeOfDay is a naive wall-clock time, minutes since midnight. The engine has
// no timezone handling; converting to and from the "HH:MM" wire form belongs
// to the persistence and transport adapters.
type TimeOfDay int

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return NewTimeOfDay(t.Hour(), t.Minute()), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) Before(u TimeOfDay) bool { return t < u }
func (t TimeOfDay) After(u TimeOfDay) bool  { return t > u }

// Sub returns the difference t-u.
func (t TimeOfDay) Sub(u TimeOfDay) time.Duration {
	return time.Duration(int(t)-int(u)) * time.Minute
}

// DateOf truncates a timestamp to its calendar date, held as UTC midnight.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Combine builds the timestamp of a time of day on a given date.
func Combine(date time.Time, tod TimeOfDay) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), tod.Hour(), tod.Minute(), 0, 0, time.UTC)
}

// WeekdayIndex maps a date to the Monday=0 .. Sunday=6 convention used by
// weekday windows.
func WeekdayIndex(date time.Time) int {
	wd := int(date.Weekday())
	if wd == 0 {
		return 6
	}
	return wd - 1
}
