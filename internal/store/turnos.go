package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"turnera/backend/internal/domain"
)

// TurnoSearch filters the turno listing. Zero/nil fields are unfiltered.
type TurnoSearch struct {
	AgendaID  *uuid.UUID
	PatientID string
	DateFrom  *time.Time
	DateTo    *time.Time
	Status    *domain.Status
	Limit     int
	Offset    int
}

// BookingTx is the slice of the store a booking sees while its agenda is
// locked: the conflict reads and the final insert happen against the same
// transaction.
type BookingTx interface {
	TurnosForPatientOnDate(ctx context.Context, patientID string, date time.Time) ([]domain.Turno, error)
	TurnosForAgendaOnDate(ctx context.Context, agendaID uuid.UUID, date time.Time) ([]domain.Turno, error)
	CreateTurno(ctx context.Context, turno domain.Turno) (domain.Turno, error)
}

type TurnoRepository interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Turno, error)
	Search(ctx context.Context, q TurnoSearch) ([]domain.Turno, error)

	// Mutate loads the turno, applies fn and persists the result as one
	// atomic read-modify-write relative to other writers of the same turno.
	Mutate(ctx context.Context, id uuid.UUID, fn func(*domain.Turno) error) (domain.Turno, error)

	// InBookingTx runs fn inside a transaction that serializes bookings on
	// the given agenda, so two concurrent requests for the same slot cannot
	// both pass the overlap checks.
	InBookingTx(ctx context.Context, agendaID uuid.UUID, fn func(ctx context.Context, tx BookingTx) error) error
}
