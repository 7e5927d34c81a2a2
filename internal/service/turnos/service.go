// Package turnos holds the booking engine, the one-shot status machine entry
// point and reminder management.
package turnos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"turnera/backend/internal/apperr"
	"turnera/backend/internal/domain"
	"turnera/backend/internal/store"
)

// BookingLeadTime is how far in the future a reservation must be.
const BookingLeadTime = 60 * time.Minute

type Service struct {
	agendas store.AgendaRepository
	turnos  store.TurnoRepository
	now     func() time.Time
}

func NewService(agendas store.AgendaRepository, turnos store.TurnoRepository) *Service {
	return &Service{agendas: agendas, turnos: turnos, now: time.Now}
}

type BookInput struct {
	ProfessionalID  string
	ReservationDate time.Time
	StartTime       domain.TimeOfDay
	PatientID       string
	// DurationMinutes zero means "use the revision's default slot length".
	DurationMinutes int
	By              string
}

// Book reserves a turno on the professional's agenda. The conflict checks and
// the insert run inside a transaction that serializes bookings per agenda.
func (s *Service) Book(ctx context.Context, in BookInput) (domain.Turno, error) {
	now := s.now()
	date := domain.DateOf(in.ReservationDate)

	if in.PatientID == "" {
		return domain.Turno{}, apperr.Validation("missing_patient", "patient id is required")
	}
	if in.DurationMinutes != 0 && in.DurationMinutes < domain.MinSlotMinutes {
		return domain.Turno{}, apperr.Validation("invalid_duration",
			fmt.Sprintf("duration must be at least %d minutes", domain.MinSlotMinutes))
	}
	if domain.Combine(date, in.StartTime).Before(now.Add(BookingLeadTime)) {
		return domain.Turno{}, apperr.Policy("too_soon",
			"a turno must be booked at least one hour in advance")
	}

	agenda, err := s.agendas.GetByProfessional(ctx, in.ProfessionalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Turno{}, apperr.NotFound("agenda_not_found", "the professional has no agenda")
		}
		return domain.Turno{}, apperr.Internal("book", err)
	}
	if !agenda.Active {
		return domain.Turno{}, apperr.Policy("agenda_inactive", "the professional's agenda is deactivated")
	}
	if len(agenda.Revisions) == 0 {
		return domain.Turno{}, apperr.Policy("no_schedule_defined",
			"the professional has no schedule loaded")
	}
	if agenda.FrozenOn(date) {
		return domain.Turno{}, apperr.Policy("date_frozen",
			"the agenda is frozen on the requested date")
	}

	window, defaultSlot, err := agenda.ResolveAvailability(date)
	if err != nil {
		return domain.Turno{}, err
	}
	if in.StartTime.Before(window.Start) || in.StartTime.After(window.End) {
		return domain.Turno{}, apperr.Policy("outside_working_hours",
			"the requested time is outside the professional's working hours")
	}

	duration := in.DurationMinutes
	if duration == 0 {
		duration = defaultSlot
	}

	candidate := domain.Turno{
		AgendaID:        agenda.ID,
		ReservationDate: date,
		StartTime:       in.StartTime,
		PatientID:       in.PatientID,
		DurationMinutes: duration,
		CreatedBy:       in.By,
		CurrentStatus:   domain.StatusRecord{Status: domain.StatusPending, By: in.By, At: now},
	}

	var created domain.Turno
	err = s.turnos.InBookingTx(ctx, agenda.ID, func(ctx context.Context, tx store.BookingTx) error {
		patientTurnos, err := tx.TurnosForPatientOnDate(ctx, in.PatientID, date)
		if err != nil {
			return err
		}
		if conflicts(candidate, patientTurnos) {
			return apperr.Conflict("patient_double_booked",
				"the turno overlaps another turno of the patient")
		}

		agendaTurnos, err := tx.TurnosForAgendaOnDate(ctx, agenda.ID, date)
		if err != nil {
			return err
		}
		if conflicts(candidate, agendaTurnos) {
			return apperr.Conflict("agenda_slot_taken",
				"the turno overlaps another turno in the agenda")
		}

		created, err = tx.CreateTurno(ctx, candidate)
		return err
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return domain.Turno{}, err
		}
		return domain.Turno{}, apperr.Internal("book", err)
	}
	return created, nil
}

func conflicts(candidate domain.Turno, existing []domain.Turno) bool {
	iv := candidate.Interval()
	for i := range existing {
		t := &existing[i]
		if t.Blocking() && domain.Overlaps(iv, t.Interval()) {
			return true
		}
	}
	return false
}

// ChangeStatus applies the turno's single status transition.
func (s *Service) ChangeStatus(ctx context.Context, turnoID uuid.UUID, newStatus domain.Status, by string) (domain.Turno, error) {
	now := s.now()
	turno, err := s.turnos.Mutate(ctx, turnoID, func(t *domain.Turno) error {
		return t.Transition(newStatus, by, now)
	})
	if err != nil {
		return domain.Turno{}, turnoErr(err, "change status")
	}
	return turno, nil
}

func (s *Service) Get(ctx context.Context, turnoID uuid.UUID) (domain.Turno, error) {
	turno, err := s.turnos.Get(ctx, turnoID)
	if err != nil {
		return domain.Turno{}, turnoErr(err, "get turno")
	}
	return turno, nil
}

type SearchInput struct {
	ProfessionalID string
	PatientID      string
	DateFrom       *time.Time
	DateTo         *time.Time
	Status         *domain.Status
	Limit          int
	Offset         int
}

// Search lists turnos ordered by reservation date and time. At least one of
// professional/patient and at least one date bound are required.
func (s *Service) Search(ctx context.Context, in SearchInput) ([]domain.Turno, error) {
	if in.ProfessionalID == "" && in.PatientID == "" {
		return nil, apperr.Validation("missing_subject",
			"at least one of professional or patient is required")
	}
	if in.DateFrom == nil && in.DateTo == nil {
		return nil, apperr.Validation("missing_date_bound",
			"at least one of dateFrom or dateTo is required")
	}

	q := store.TurnoSearch{
		PatientID: in.PatientID,
		Status:    in.Status,
	}
	if in.DateFrom != nil {
		from := domain.DateOf(*in.DateFrom)
		q.DateFrom = &from
	}
	if in.DateTo != nil {
		to := domain.DateOf(*in.DateTo)
		q.DateTo = &to
	}
	if in.ProfessionalID != "" {
		agenda, err := s.agendas.GetByProfessional(ctx, in.ProfessionalID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, apperr.NotFound("agenda_not_found",
					"the professional does not exist or has no agenda")
			}
			return nil, apperr.Internal("search turnos", err)
		}
		q.AgendaID = &agenda.ID
	}

	limit := in.Limit
	if limit <= 0 {
		limit = 20
	}
	q.Limit = limit
	// Offset is page-indexed, kept from the original API contract.
	q.Offset = in.Offset * limit

	turnos, err := s.turnos.Search(ctx, q)
	if err != nil {
		return nil, apperr.Internal("search turnos", err)
	}
	return turnos, nil
}

type ReminderInput struct {
	Side    domain.ReminderSide
	Date    time.Time
	Time    domain.TimeOfDay
	Methods []domain.NotificationMethod
}

// ScheduleReminder attaches a reminder to a pending turno, addressed to the
// agenda's professional or the turno's patient.
func (s *Service) ScheduleReminder(ctx context.Context, turnoID uuid.UUID, in ReminderInput) (domain.Turno, error) {
	now := s.now()
	date := domain.DateOf(in.Date)
	turno, err := s.turnos.Mutate(ctx, turnoID, func(t *domain.Turno) error {
		recipientID := t.PatientID
		if in.Side == domain.SideProfessional {
			agenda, err := s.agendas.Get(ctx, t.AgendaID)
			if err != nil {
				return err
			}
			recipientID = agenda.ProfessionalID
		}
		return t.ScheduleReminder(recipientID, date, in.Time, in.Methods, now)
	})
	if err != nil {
		return domain.Turno{}, turnoErr(err, "schedule reminder")
	}
	return turno, nil
}

// DeactivateReminder turns off the reminder matching (side, date, time).
func (s *Service) DeactivateReminder(ctx context.Context, turnoID uuid.UUID, side domain.ReminderSide, date time.Time, at domain.TimeOfDay) (domain.Turno, error) {
	turno, err := s.turnos.Mutate(ctx, turnoID, func(t *domain.Turno) error {
		return t.DeactivateReminder(side, domain.DateOf(date), at)
	})
	if err != nil {
		return domain.Turno{}, turnoErr(err, "deactivate reminder")
	}
	return turno, nil
}

func turnoErr(err error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("turno_not_found", "no turno exists with that id")
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(op, err)
}
