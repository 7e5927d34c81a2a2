package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"turnera/backend/internal/domain"
	"turnera/backend/internal/store"
)

type TurnoRepo struct {
	db *bun.DB
}

func NewTurnoRepo(db *bun.DB) *TurnoRepo {
	return &TurnoRepo{db: db}
}

type bookingTx struct {
	tx bun.Tx
}

func (r *TurnoRepo) Get(ctx context.Context, id uuid.UUID) (domain.Turno, error) {
	var rec turnoRecord
	err := r.db.NewSelect().
		Model(&rec).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Turno{}, store.ErrNotFound
		}
		return domain.Turno{}, err
	}
	return fromTurnoRecord(rec)
}

func (r *TurnoRepo) Search(ctx context.Context, q store.TurnoSearch) ([]domain.Turno, error) {
	var recs []turnoRecord
	query := r.db.NewSelect().Model(&recs)
	if q.AgendaID != nil {
		query = query.Where("agenda_id = ?", *q.AgendaID)
	}
	if q.PatientID != "" {
		query = query.Where("patient_id = ?", q.PatientID)
	}
	if q.DateFrom != nil {
		query = query.Where("reservation_date >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		query = query.Where("reservation_date <= ?", *q.DateTo)
	}
	if q.Status != nil {
		query = query.Where("status = ?", string(*q.Status))
	}
	query = query.OrderExpr("reservation_date ASC, start_time ASC")
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}

	out := make([]domain.Turno, 0, len(recs))
	for _, rec := range recs {
		t, err := fromTurnoRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *TurnoRepo) Mutate(ctx context.Context, id uuid.UUID, fn func(*domain.Turno) error) (domain.Turno, error) {
	var out domain.Turno
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockAggregate(ctx, tx, id); err != nil {
			return err
		}

		var rec turnoRecord
		err := tx.NewSelect().
			Model(&rec).
			Where("id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.ErrNotFound
			}
			return err
		}

		turno, err := fromTurnoRecord(rec)
		if err != nil {
			return err
		}
		if err := fn(&turno); err != nil {
			return err
		}

		updated := toTurnoRecord(turno)
		if _, err := tx.NewUpdate().Model(&updated).WherePK().Exec(ctx); err != nil {
			return err
		}
		out = turno
		return nil
	})
	if err != nil {
		return domain.Turno{}, err
	}
	return out, nil
}

// InBookingTx takes the agenda's advisory lock before running fn, so the
// overlap scan and the insert of one booking cannot interleave with another
// booking on the same agenda.
func (r *TurnoRepo) InBookingTx(ctx context.Context, agendaID uuid.UUID, fn func(ctx context.Context, tx store.BookingTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockAggregate(ctx, tx, agendaID); err != nil {
			return err
		}
		return fn(ctx, bookingTx{tx: tx})
	})
}

func (b bookingTx) TurnosForPatientOnDate(ctx context.Context, patientID string, date time.Time) ([]domain.Turno, error) {
	var recs []turnoRecord
	err := b.tx.NewSelect().
		Model(&recs).
		Where("patient_id = ?", patientID).
		Where("reservation_date = ?", date).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return fromTurnoRecords(recs)
}

func (b bookingTx) TurnosForAgendaOnDate(ctx context.Context, agendaID uuid.UUID, date time.Time) ([]domain.Turno, error) {
	var recs []turnoRecord
	err := b.tx.NewSelect().
		Model(&recs).
		Where("agenda_id = ?", agendaID).
		Where("reservation_date = ?", date).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return fromTurnoRecords(recs)
}

func (b bookingTx) CreateTurno(ctx context.Context, turno domain.Turno) (domain.Turno, error) {
	rec := toTurnoRecord(turno)
	if _, err := b.tx.NewInsert().Model(&rec).Exec(ctx); err != nil {
		return domain.Turno{}, err
	}
	turno.ID = rec.ID
	turno.CreatedAt = rec.CreatedAt
	return turno, nil
}

func fromTurnoRecords(recs []turnoRecord) ([]domain.Turno, error) {
	out := make([]domain.Turno, 0, len(recs))
	for _, rec := range recs {
		t, err := fromTurnoRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
