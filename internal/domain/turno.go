package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"turnera/backend/internal/apperr"
)

// Status of a turno. The wire values are the ones the rest of the clinic
// systems already speak.
type Status string

const (
	StatusPending     Status = "pendiente"
	StatusAttended    Status = "atendido"
	StatusAbsent      Status = "paciente ausente"
	StatusRescheduled Status = "reprogramado"
	StatusCancelled   Status = "cancelado"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusAttended, StatusAbsent, StatusRescheduled, StatusCancelled:
		return Status(s), nil
	}
	return "", apperr.Validation("invalid_status", fmt.Sprintf("unknown status %q", s))
}

type StatusRecord struct {
	Status Status
	By     string
	At     time.Time
}

type NotificationMethod string

const (
	MethodPhone NotificationMethod = "telefono"
	MethodEmail NotificationMethod = "mail"
)

func ParseNotificationMethod(s string) (NotificationMethod, error) {
	switch NotificationMethod(s) {
	case MethodPhone, MethodEmail:
		return NotificationMethod(s), nil
	}
	return "", apperr.Validation("invalid_method", fmt.Sprintf("unknown notification method %q", s))
}

// ReminderSide selects who a reminder addresses.
type ReminderSide int

const (
	SideProfessional ReminderSide = iota
	SidePatient
)

type Reminder struct {
	RecipientID string
	Date        time.Time
	Time        TimeOfDay
	Methods     []NotificationMethod
	Active      bool
}

// Turno is a booked appointment. It owns its status history (exactly one
// transition ever) and its reminder list.
type Turno struct {
	ID              uuid.UUID
	AgendaID        uuid.UUID
	ReservationDate time.Time
	StartTime       TimeOfDay
	PatientID       string
	DurationMinutes int
	CreatedBy       string
	CreatedAt       time.Time
	CurrentStatus   StatusRecord
	PreviousStatus  *StatusRecord
	Reminders       []Reminder
}

// StartsAt is the appointment's scheduled timestamp.
func (t *Turno) StartsAt() time.Time {
	return Combine(t.ReservationDate, t.StartTime)
}

func (t *Turno) Interval() Interval {
	return NewInterval(t.ReservationDate, t.StartTime, t.DurationMinutes)
}

// Blocking reports whether the turno still occupies its slot for overlap
// purposes. Rescheduled and cancelled turnos free the slot.
func (t *Turno) Blocking() bool {
	s := t.CurrentStatus.Status
	return s != StatusRescheduled && s != StatusCancelled
}

// Transition applies the one-shot status change. Every non-pending status is
// terminal, so a turno that already moved can never move again.
func (t *Turno) Transition(newStatus Status, by string, now time.Time) error {
	if t.CurrentStatus.Status != StatusPending {
		return apperr.Conflict("already_resolved", "the turno already changed status")
	}
	if newStatus == t.CurrentStatus.Status {
		return apperr.Conflict("no_op_transition", "the new status is identical to the current one")
	}
	if (newStatus == StatusAttended || newStatus == StatusAbsent) && now.Before(t.StartsAt()) {
		return apperr.Policy("premature_outcome",
			fmt.Sprintf("status %q cannot be set before the appointment time", newStatus))
	}
	prev := t.CurrentStatus
	t.PreviousStatus = &prev
	t.CurrentStatus = StatusRecord{Status: newStatus, By: by, At: now}
	return nil
}

// ReminderLeadTime is the minimum gap between a reminder and its appointment.
const ReminderLeadTime = 120 * time.Minute

// ScheduleReminder validates and appends an active reminder addressed to
// recipientID.
func (t *Turno) ScheduleReminder(recipientID string, date time.Time, at TimeOfDay, methods []NotificationMethod, now time.Time) error {
	if t.CurrentStatus.Status != StatusPending {
		return apperr.Policy("appointment_not_pending",
			fmt.Sprintf("the turno will not take place, its status is %q", t.CurrentStatus.Status))
	}
	if date.After(t.ReservationDate) {
		return apperr.Policy("reminder_after_appointment",
			"a reminder cannot fire after the appointment date")
	}
	if t.StartsAt().Sub(Combine(date, at)) < ReminderLeadTime {
		return apperr.Policy("insufficient_lead_time",
			"a reminder must fire at least two hours before the appointment")
	}
	if date.Before(DateOf(now)) {
		return apperr.Validation("reminder_in_past", "a reminder cannot be set on a past date")
	}
	if len(methods) < 1 || len(methods) > 2 {
		return apperr.Validation("invalid_method_count", "a reminder needs one or two notification methods")
	}
	if len(methods) == 2 && methods[0] == methods[1] {
		return apperr.Validation("duplicate_method", "notification methods must be distinct")
	}
	t.Reminders = append(t.Reminders, Reminder{
		RecipientID: recipientID,
		Date:        date,
		Time:        at,
		Methods:     methods,
		Active:      true,
	})
	return nil
}

// DeactivateReminder turns off the reminder(s) matching (side, date, time).
// The professional side matches reminders not addressed to the patient.
func (t *Turno) DeactivateReminder(side ReminderSide, date time.Time, at TimeOfDay) error {
	if len(t.Reminders) == 0 {
		return apperr.NotFound("reminder_not_found", "the turno has no reminders")
	}
	found := false
	for i := range t.Reminders {
		r := &t.Reminders[i]
		if !r.Date.Equal(date) || r.Time != at {
			continue
		}
		forPatient := r.RecipientID == t.PatientID
		if (side == SidePatient) != forPatient {
			continue
		}
		if !r.Active {
			return apperr.Conflict("reminder_already_inactive", "that reminder was already deactivated")
		}
		r.Active = false
		found = true
	}
	if !found {
		return apperr.NotFound("reminder_not_found", "no reminder matches the given date and time")
	}
	return nil
}
