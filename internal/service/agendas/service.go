// Package agendas holds the agenda lifecycle operations: creation, schedule
// revision loading, freezing and deactivation.
package agendas

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"turnera/backend/internal/apperr"
	"turnera/backend/internal/domain"
	"turnera/backend/internal/store"
)

type Service struct {
	repo store.AgendaRepository
	now  func() time.Time
}

func NewService(repo store.AgendaRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create opens an agenda for a professional. One agenda per professional.
func (s *Service) Create(ctx context.Context, professionalID, ownerUserID string) (domain.Agenda, error) {
	professionalID = strings.TrimSpace(professionalID)
	if professionalID == "" {
		return domain.Agenda{}, apperr.Validation("missing_professional", "professional id is required")
	}
	if strings.TrimSpace(ownerUserID) == "" {
		return domain.Agenda{}, apperr.Validation("missing_caller", "caller id is required")
	}

	agenda, err := s.repo.Create(ctx, domain.NewAgenda(professionalID, ownerUserID))
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.Agenda{}, apperr.Conflict("duplicate_professional",
				"an agenda already exists for that professional")
		}
		return domain.Agenda{}, apperr.Internal("create agenda", err)
	}
	return agenda, nil
}

type WindowInput struct {
	Weekday int
	Start   domain.TimeOfDay
	End     domain.TimeOfDay
}

type LoadRevisionInput struct {
	DefaultSlotMinutes int
	EffectiveFrom      time.Time // zero value means today
	Windows            []WindowInput
	By                 string
}

// LoadRevision attaches a weekly availability revision to the agenda,
// replacing any revision already effective from the same date.
func (s *Service) LoadRevision(ctx context.Context, agendaID uuid.UUID, in LoadRevisionInput) (domain.Agenda, error) {
	now := s.now()
	effectiveFrom := in.EffectiveFrom
	if effectiveFrom.IsZero() {
		effectiveFrom = domain.DateOf(now)
	}

	rev := domain.ScheduleRevision{
		DefaultSlotMinutes: in.DefaultSlotMinutes,
		EffectiveFrom:      domain.DateOf(effectiveFrom),
		CreatedBy:          in.By,
		CreatedAt:          now,
		Windows:            make([]domain.WeekdayWindow, 0, len(in.Windows)),
	}
	for _, w := range in.Windows {
		rev.Windows = append(rev.Windows, domain.WeekdayWindow{Weekday: w.Weekday, Start: w.Start, End: w.End})
	}

	agenda, err := s.repo.Mutate(ctx, agendaID, func(a *domain.Agenda) error {
		return a.LoadRevision(rev)
	})
	if err != nil {
		return domain.Agenda{}, agendaErr(err, "load revision")
	}
	return agenda, nil
}

// Freeze blocks bookings on the agenda for the [start, end] date range.
func (s *Service) Freeze(ctx context.Context, agendaID uuid.UUID, start, end time.Time, reason, by string) error {
	now := s.now()
	_, err := s.repo.Mutate(ctx, agendaID, func(a *domain.Agenda) error {
		return a.Freeze(domain.DateOf(start), domain.DateOf(end), reason, by, now)
	})
	if err != nil {
		return agendaErr(err, "freeze")
	}
	return nil
}

// Unfreeze deactivates the frozen period matching the exact date pair.
func (s *Service) Unfreeze(ctx context.Context, agendaID uuid.UUID, start, end time.Time) error {
	_, err := s.repo.Mutate(ctx, agendaID, func(a *domain.Agenda) error {
		return a.Unfreeze(domain.DateOf(start), domain.DateOf(end))
	})
	if err != nil {
		return agendaErr(err, "unfreeze")
	}
	return nil
}

// Deactivate flips the agenda inactive, irreversibly.
func (s *Service) Deactivate(ctx context.Context, agendaID uuid.UUID, by string) error {
	now := s.now()
	_, err := s.repo.Mutate(ctx, agendaID, func(a *domain.Agenda) error {
		return a.Deactivate(by, now)
	})
	if err != nil {
		return agendaErr(err, "deactivate")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, agendaID uuid.UUID) (domain.Agenda, error) {
	agenda, err := s.repo.Get(ctx, agendaID)
	if err != nil {
		return domain.Agenda{}, agendaErr(err, "get agenda")
	}
	return agenda, nil
}

type SearchInput struct {
	ProfessionalID string
	Active         *bool
	Limit          int
	Offset         int
}

// Search lists agendas. A professional filter returns that professional's
// single agenda and ignores paging.
func (s *Service) Search(ctx context.Context, in SearchInput) ([]domain.Agenda, error) {
	if in.ProfessionalID != "" {
		agenda, err := s.repo.GetByProfessional(ctx, in.ProfessionalID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, apperr.NotFound("agenda_not_found", "no agenda exists for that professional")
			}
			return nil, apperr.Internal("search agendas", err)
		}
		return []domain.Agenda{agenda}, nil
	}

	limit := in.Limit
	if limit <= 0 {
		limit = 20
	}
	// Offset is page-indexed, kept from the original API contract.
	agendas, err := s.repo.Search(ctx, store.AgendaSearch{
		Active: in.Active,
		Limit:  limit,
		Offset: in.Offset * limit,
	})
	if err != nil {
		return nil, apperr.Internal("search agendas", err)
	}
	return agendas, nil
}

func agendaErr(err error, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("agenda_not_found", "no agenda exists with that id")
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(op, err)
}
