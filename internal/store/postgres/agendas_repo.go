package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"turnera/backend/internal/domain"
	"turnera/backend/internal/store"
)

type AgendaRepo struct {
	db *bun.DB
}

func NewAgendaRepo(db *bun.DB) *AgendaRepo {
	return &AgendaRepo{db: db}
}

func (r *AgendaRepo) Create(ctx context.Context, agenda domain.Agenda) (domain.Agenda, error) {
	rec := toAgendaRecord(agenda)
	_, err := r.db.NewInsert().Model(&rec).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Agenda{}, store.ErrConflict
		}
		return domain.Agenda{}, err
	}
	agenda.ID = rec.ID
	agenda.CreatedAt = rec.CreatedAt
	return agenda, nil
}

func (r *AgendaRepo) Get(ctx context.Context, id uuid.UUID) (domain.Agenda, error) {
	var rec agendaRecord
	err := r.db.NewSelect().
		Model(&rec).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Agenda{}, store.ErrNotFound
		}
		return domain.Agenda{}, err
	}
	return fromAgendaRecord(rec)
}

func (r *AgendaRepo) GetByProfessional(ctx context.Context, professionalID string) (domain.Agenda, error) {
	var rec agendaRecord
	err := r.db.NewSelect().
		Model(&rec).
		Where("professional_id = ?", professionalID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Agenda{}, store.ErrNotFound
		}
		return domain.Agenda{}, err
	}
	return fromAgendaRecord(rec)
}

func (r *AgendaRepo) Search(ctx context.Context, q store.AgendaSearch) ([]domain.Agenda, error) {
	var recs []agendaRecord
	query := r.db.NewSelect().Model(&recs)
	if q.Active != nil {
		query = query.Where("active = ?", *q.Active)
	}
	query = query.OrderExpr("created_at ASC")
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}

	out := make([]domain.Agenda, 0, len(recs))
	for _, rec := range recs {
		a, err := fromAgendaRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *AgendaRepo) Mutate(ctx context.Context, id uuid.UUID, fn func(*domain.Agenda) error) (domain.Agenda, error) {
	var out domain.Agenda
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockAggregate(ctx, tx, id); err != nil {
			return err
		}

		var rec agendaRecord
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

		agenda, err := fromAgendaRecord(rec)
		if err != nil {
			return err
		}
		if err := fn(&agenda); err != nil {
			return err
		}

		updated := toAgendaRecord(agenda)
		if _, err := tx.NewUpdate().Model(&updated).WherePK().Exec(ctx); err != nil {
			return err
		}
		out = agenda
		return nil
	})
	if err != nil {
		return domain.Agenda{}, err
	}
	return out, nil
}

// lockAggregate serializes writers of one aggregate for the duration of the
// transaction.
func lockAggregate(ctx context.Context, tx bun.Tx, id uuid.UUID) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", id.String()).Exec(ctx)
	return err
}
