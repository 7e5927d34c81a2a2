package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"turnera/backend/internal/apperr"
)

// Agenda is a professional's schedule aggregate: time-versioned weekly
// availability plus frozen date ranges and an irreversible deactivation flag.
// It exclusively owns its revisions and frozen periods.
type Agenda struct {
	ID             uuid.UUID
	ProfessionalID string
	OwnerUserID    string
	CreatedAt      time.Time
	Active         bool
	Deactivation   *Deactivation
	Revisions      []ScheduleRevision
	FrozenPeriods  []FrozenPeriod
}

type Deactivation struct {
	By string
	At time.Time
}

// ScheduleRevision is one dated version of the weekly availability template.
// Revisions are appended (or replaced in place for an identical EffectiveFrom)
// and never removed; the most recent applicable one wins.
type ScheduleRevision struct {
	DefaultSlotMinutes int
	EffectiveFrom      time.Time
	CreatedBy          string
	CreatedAt          time.Time
	Windows            []WeekdayWindow
}

// WeekdayWindow is the working-hours interval for one day of the week,
// Monday = 0 through Sunday = 6.
type WeekdayWindow struct {
	Weekday int
	Start   TimeOfDay
	End     TimeOfDay
}

// FrozenPeriod is a date range during which the agenda refuses new bookings.
// Periods are deactivated, never deleted, so the audit trail survives.
type FrozenPeriod struct {
	StartDate time.Time
	EndDate   time.Time
	Reason    string
	Active    bool
	CreatedBy string
	CreatedAt time.Time
}

const minWindowDuration = 60 * time.Minute

// MinSlotMinutes is the floor for both the revision default and a requested
// appointment duration.
const MinSlotMinutes = 15

func NewAgenda(professionalID, ownerUserID string) Agenda {
	return Agenda{
		ProfessionalID: professionalID,
		OwnerUserID:    ownerUserID,
		Active:         true,
	}
}

// LoadRevision validates and attaches a new schedule revision. A revision with
// the same EffectiveFrom replaces the existing one instead of duplicating it.
func (a *Agenda) LoadRevision(rev ScheduleRevision) error {
	if !a.Active {
		return apperr.Policy("agenda_inactive", "agenda is deactivated")
	}
	if rev.DefaultSlotMinutes < MinSlotMinutes {
		return apperr.Validation("invalid_slot_duration",
			fmt.Sprintf("default slot must be at least %d minutes", MinSlotMinutes))
	}
	if len(rev.Windows) == 0 {
		return apperr.Validation("no_weekday_windows", "at least one weekday window is required")
	}
	if len(rev.Windows) > 7 {
		return apperr.Validation("too_many_weekday_windows", "cannot load more than 7 weekday windows")
	}
	seen := make(map[int]struct{}, len(rev.Windows))
	for _, w := range rev.Windows {
		if w.Weekday < 0 || w.Weekday > 6 {
			return apperr.Validation("invalid_weekday", fmt.Sprintf("weekday %d is out of range", w.Weekday))
		}
		if _, ok := seen[w.Weekday]; ok {
			return apperr.Validation("duplicate_weekday", fmt.Sprintf("weekday %d is repeated", w.Weekday))
		}
		seen[w.Weekday] = struct{}{}
		if !w.Start.Before(w.End) {
			return apperr.Validation("invalid_window",
				fmt.Sprintf("weekday %d window must end after it starts", w.Weekday))
		}
		if w.End.Sub(w.Start) < minWindowDuration {
			return apperr.Validation("window_too_short",
				fmt.Sprintf("weekday %d window must span at least one hour", w.Weekday))
		}
	}

	for i := range a.Revisions {
		if a.Revisions[i].EffectiveFrom.Equal(rev.EffectiveFrom) {
			a.Revisions[i] = rev
			return nil
		}
	}
	a.Revisions = append(a.Revisions, rev)
	return nil
}

// ResolveAvailability picks the revision effective for the reservation date
// and the weekday window matching its day of week.
func (a *Agenda) ResolveAvailability(reservationDate time.Time) (WeekdayWindow, int, error) {
	var effective *ScheduleRevision
	for i := range a.Revisions {
		rev := &a.Revisions[i]
		if rev.EffectiveFrom.After(reservationDate) {
			continue
		}
		if effective == nil || effective.EffectiveFrom.Before(rev.EffectiveFrom) {
			effective = rev
		}
	}
	if effective == nil {
		return WeekdayWindow{}, 0, apperr.Policy("no_schedule_defined",
			"the professional has no schedule effective on that date")
	}

	weekday := WeekdayIndex(reservationDate)
	for _, w := range effective.Windows {
		if w.Weekday == weekday {
			return w, effective.DefaultSlotMinutes, nil
		}
	}
	return WeekdayWindow{}, 0, apperr.Policy("day_not_serviced",
		"the professional does not take appointments on that day of the week")
}

// Freeze appends an active frozen period covering [start, end].
func (a *Agenda) Freeze(start, end time.Time, reason, by string, now time.Time) error {
	if !a.Active {
		return apperr.Policy("agenda_inactive", "agenda is deactivated")
	}
	if start.After(end) {
		return apperr.Validation("invalid_range", "frozen period cannot end before it starts")
	}
	a.FrozenPeriods = append(a.FrozenPeriods, FrozenPeriod{
		StartDate: start,
		EndDate:   end,
		Reason:    reason,
		Active:    true,
		CreatedBy: by,
		CreatedAt: now,
	})
	return nil
}

// Unfreeze deactivates the frozen period matching the exact (start, end) pair.
// The record itself is kept.
func (a *Agenda) Unfreeze(start, end time.Time) error {
	if !a.Active {
		return apperr.Policy("agenda_inactive", "agenda is deactivated")
	}
	for i := range a.FrozenPeriods {
		p := &a.FrozenPeriods[i]
		if !p.StartDate.Equal(start) || !p.EndDate.Equal(end) {
			continue
		}
		if !p.Active {
			return apperr.Conflict("already_unfrozen", "that period was already unfrozen")
		}
		p.Active = false
		return nil
	}
	return apperr.NotFound("freeze_not_found", "the agenda has no frozen period for those dates")
}

// FrozenOn reports whether an active frozen period covers the date.
func (a *Agenda) FrozenOn(date time.Time) bool {
	for _, p := range a.FrozenPeriods {
		if !p.Active {
			continue
		}
		if !p.StartDate.After(date) && !p.EndDate.Before(date) {
			return true
		}
	}
	return false
}

// Deactivate flips the agenda inactive. The flip is irreversible.
func (a *Agenda) Deactivate(by string, now time.Time) error {
	if !a.Active {
		return apperr.Conflict("already_inactive", "agenda is already deactivated")
	}
	a.Active = false
	a.Deactivation = &Deactivation{By: by, At: now}
	return nil
}
