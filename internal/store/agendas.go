package store

import (
	"context"

	"github.com/google/uuid"

	"turnera/backend/internal/domain"
)

// AgendaSearch filters the agenda listing. Active distinguishes three states:
// nil (no filter), true, false.
type AgendaSearch struct {
	Active *bool
	Limit  int
	Offset int
}

type AgendaRepository interface {
	// Create persists a new agenda. Returns ErrConflict when an agenda
	// already exists for the same professional.
	Create(ctx context.Context, agenda domain.Agenda) (domain.Agenda, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Agenda, error)
	GetByProfessional(ctx context.Context, professionalID string) (domain.Agenda, error)
	Search(ctx context.Context, q AgendaSearch) ([]domain.Agenda, error)

	// Mutate loads the agenda, applies fn and persists the result as one
	// atomic read-modify-write. An error from fn aborts and is returned
	// unchanged.
	Mutate(ctx context.Context, id uuid.UUID, fn func(*domain.Agenda) error) (domain.Agenda, error)
}
