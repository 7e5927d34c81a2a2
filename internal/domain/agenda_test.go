package domain

import (
	"testing"
	"time"

	"turnera/backend/internal/apperr"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validRevision(effectiveFrom time.Time) ScheduleRevision {
	return ScheduleRevision{
		DefaultSlotMinutes: 15,
		EffectiveFrom:      effectiveFrom,
		CreatedBy:          "1",
		CreatedAt:          time.Now().UTC(),
		Windows: []WeekdayWindow{
			{Weekday: 0, Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(13, 0)},
		},
	}
}

func TestLoadRevision_Validation(t *testing.T) {
	window := func(weekday, sh, sm, eh, em int) WeekdayWindow {
		return WeekdayWindow{Weekday: weekday, Start: NewTimeOfDay(sh, sm), End: NewTimeOfDay(eh, em)}
	}

	tests := []struct {
		name     string
		mutate   func(*ScheduleRevision)
		wantCode string
	}{
		{
			name:     "slot below minimum",
			mutate:   func(r *ScheduleRevision) { r.DefaultSlotMinutes = 10 },
			wantCode: "invalid_slot_duration",
		},
		{
			name:     "no windows",
			mutate:   func(r *ScheduleRevision) { r.Windows = nil },
			wantCode: "no_weekday_windows",
		},
		{
			name: "eight windows",
			mutate: func(r *ScheduleRevision) {
				r.Windows = nil
				for i := 0; i < 8; i++ {
					r.Windows = append(r.Windows, window(i%7, 9, 0, 13, 0))
				}
			},
			wantCode: "too_many_weekday_windows",
		},
		{
			name: "duplicate weekday",
			mutate: func(r *ScheduleRevision) {
				r.Windows = []WeekdayWindow{window(2, 9, 0, 13, 0), window(2, 14, 0, 18, 0)}
			},
			wantCode: "duplicate_weekday",
		},
		{
			name: "weekday out of range",
			mutate: func(r *ScheduleRevision) {
				r.Windows = []WeekdayWindow{window(7, 9, 0, 13, 0)}
			},
			wantCode: "invalid_weekday",
		},
		{
			name: "window ends before it starts",
			mutate: func(r *ScheduleRevision) {
				r.Windows = []WeekdayWindow{window(0, 13, 0, 9, 0)}
			},
			wantCode: "invalid_window",
		},
		{
			name: "window under one hour",
			mutate: func(r *ScheduleRevision) {
				r.Windows = []WeekdayWindow{window(0, 9, 0, 9, 45)}
			},
			wantCode: "window_too_short",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agenda := NewAgenda("10", "1")
			rev := validRevision(date(2026, 1, 2))
			tt.mutate(&rev)

			err := agenda.LoadRevision(rev)
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := apperr.CodeOf(err); got != tt.wantCode {
				t.Fatalf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestLoadRevision_ReplacesSameEffectiveFrom(t *testing.T) {
	agenda := NewAgenda("10", "1")

	if err := agenda.LoadRevision(validRevision(date(2026, 1, 2))); err != nil {
		t.Fatalf("first load error: %v", err)
	}

	replacement := validRevision(date(2026, 1, 2))
	replacement.DefaultSlotMinutes = 30
	if err := agenda.LoadRevision(replacement); err != nil {
		t.Fatalf("second load error: %v", err)
	}

	if len(agenda.Revisions) != 1 {
		t.Fatalf("len(Revisions) = %d, want 1", len(agenda.Revisions))
	}
	if agenda.Revisions[0].DefaultSlotMinutes != 30 {
		t.Fatalf("DefaultSlotMinutes = %d, want 30", agenda.Revisions[0].DefaultSlotMinutes)
	}
}

func TestLoadRevision_InactiveAgenda(t *testing.T) {
	agenda := NewAgenda("10", "1")
	if err := agenda.Deactivate("1", time.Now().UTC()); err != nil {
		t.Fatalf("Deactivate error: %v", err)
	}

	err := agenda.LoadRevision(validRevision(date(2026, 1, 2)))
	if got := apperr.CodeOf(err); got != "agenda_inactive" {
		t.Fatalf("code = %q, want %q", got, "agenda_inactive")
	}
}

func TestResolveAvailability_PicksMostRecentApplicableRevision(t *testing.T) {
	agenda := NewAgenda("10", "1")

	jan := validRevision(date(2024, 1, 1))
	jan.DefaultSlotMinutes = 15
	jun := validRevision(date(2024, 6, 1))
	jun.DefaultSlotMinutes = 30

	if err := agenda.LoadRevision(jan); err != nil {
		t.Fatalf("load jan error: %v", err)
	}
	if err := agenda.LoadRevision(jun); err != nil {
		t.Fatalf("load jun error: %v", err)
	}

	// 2024-03-18 and 2024-07-01 are Mondays, matching the revisions' window.
	_, slot, err := agenda.ResolveAvailability(date(2024, 3, 18))
	if err != nil {
		t.Fatalf("resolve 2024-03-18 error: %v", err)
	}
	if slot != 15 {
		t.Fatalf("slot for 2024-03-18 = %d, want 15 (january revision)", slot)
	}

	_, slot, err = agenda.ResolveAvailability(date(2024, 7, 1))
	if err != nil {
		t.Fatalf("resolve 2024-07-01 error: %v", err)
	}
	if slot != 30 {
		t.Fatalf("slot for 2024-07-01 = %d, want 30 (june revision)", slot)
	}
}

func TestResolveAvailability_Failures(t *testing.T) {
	agenda := NewAgenda("10", "1")

	_, _, err := agenda.ResolveAvailability(date(2026, 1, 5))
	if got := apperr.CodeOf(err); got != "no_schedule_defined" {
		t.Fatalf("code = %q, want %q", got, "no_schedule_defined")
	}

	if err := agenda.LoadRevision(validRevision(date(2026, 1, 2))); err != nil {
		t.Fatalf("load error: %v", err)
	}

	// Revision effective after the date: still nothing applies.
	_, _, err = agenda.ResolveAvailability(date(2026, 1, 1))
	if got := apperr.CodeOf(err); got != "no_schedule_defined" {
		t.Fatalf("code = %q, want %q", got, "no_schedule_defined")
	}

	// 2026-01-06 is a Tuesday and the revision only covers Mondays.
	_, _, err = agenda.ResolveAvailability(date(2026, 1, 6))
	if got := apperr.CodeOf(err); got != "day_not_serviced" {
		t.Fatalf("code = %q, want %q", got, "day_not_serviced")
	}
}

func TestFreezeLifecycle(t *testing.T) {
	agenda := NewAgenda("10", "1")
	now := time.Now().UTC()
	start := date(2025, 12, 20)
	end := date(2026, 1, 10)

	if err := agenda.Freeze(end, start, "vacaciones", "1", now); apperr.CodeOf(err) != "invalid_range" {
		t.Fatalf("inverted range code = %q, want %q", apperr.CodeOf(err), "invalid_range")
	}

	if err := agenda.Freeze(start, end, "vacaciones", "1", now); err != nil {
		t.Fatalf("Freeze error: %v", err)
	}

	if !agenda.FrozenOn(date(2026, 1, 5)) {
		t.Fatalf("expected 2026-01-05 to be frozen")
	}
	if agenda.FrozenOn(date(2026, 1, 11)) {
		t.Fatalf("expected 2026-01-11 to be outside the freeze")
	}

	if err := agenda.Unfreeze(start, date(2026, 1, 9)); apperr.CodeOf(err) != "freeze_not_found" {
		t.Fatalf("mismatched pair code = %q, want %q", apperr.CodeOf(err), "freeze_not_found")
	}

	if err := agenda.Unfreeze(start, end); err != nil {
		t.Fatalf("Unfreeze error: %v", err)
	}
	if agenda.FrozenOn(date(2026, 1, 5)) {
		t.Fatalf("unfrozen period must not block")
	}

	// The record stays for audit, it is only flagged.
	if len(agenda.FrozenPeriods) != 1 {
		t.Fatalf("len(FrozenPeriods) = %d, want 1", len(agenda.FrozenPeriods))
	}
	if agenda.FrozenPeriods[0].Active {
		t.Fatalf("period still active after unfreeze")
	}

	if err := agenda.Unfreeze(start, end); apperr.CodeOf(err) != "already_unfrozen" {
		t.Fatalf("second unfreeze code = %q, want %q", apperr.CodeOf(err), "already_unfrozen")
	}
}

func TestDeactivate_Irreversible(t *testing.T) {
	agenda := NewAgenda("10", "1")
	now := time.Now().UTC()

	if err := agenda.Deactivate("9", now); err != nil {
		t.Fatalf("Deactivate error: %v", err)
	}
	if agenda.Active {
		t.Fatalf("agenda still active")
	}
	if agenda.Deactivation == nil || agenda.Deactivation.By != "9" {
		t.Fatalf("deactivation record = %+v", agenda.Deactivation)
	}

	if err := agenda.Deactivate("9", now); apperr.CodeOf(err) != "already_inactive" {
		t.Fatalf("second deactivate code = %q, want %q", apperr.CodeOf(err), "already_inactive")
	}
}
