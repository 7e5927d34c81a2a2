package domain

import "time"

// Interval is one appointment's occupied span on the timeline.
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(date time.Time, start TimeOfDay, durationMinutes int) Interval {
	s := Combine(date, start)
	return Interval{Start: s, End: s.Add(time.Duration(durationMinutes) * time.Minute)}
}

// Overlaps reports whether two intervals conflict. Boundaries are inclusive on
// both ends: an appointment ending exactly when another begins counts as a
// conflict. Symmetric in its arguments.
func Overlaps(a, b Interval) bool {
	return within(a.Start, b) || within(b.Start, a)
}

func within(t time.Time, iv Interval) bool {
	return !t.Before(iv.Start) && !t.After(iv.End)
}
