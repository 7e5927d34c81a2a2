package agendas

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"turnera/backend/internal/apperr"
	"turnera/backend/internal/domain"
	"turnera/backend/internal/store"
)

type fakeRepo struct {
	createFn            func(ctx context.Context, agenda domain.Agenda) (domain.Agenda, error)
	getFn               func(ctx context.Context, id uuid.UUID) (domain.Agenda, error)
	getByProfessionalFn func(ctx context.Context, professionalID string) (domain.Agenda, error)
	searchFn            func(ctx context.Context, q store.AgendaSearch) ([]domain.Agenda, error)
	mutateFn            func(ctx context.Context, id uuid.UUID, fn func(*domain.Agenda) error) (domain.Agenda, error)
}

func (f *fakeRepo) Create(ctx context.Context, agenda domain.Agenda) (domain.Agenda, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, agenda)
}

func (f *fakeRepo) Get(ctx context.Context, id uuid.UUID) (domain.Agenda, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, id)
}

func (f *fakeRepo) GetByProfessional(ctx context.Context, professionalID string) (domain.Agenda, error) {
	if f.getByProfessionalFn == nil {
		panic("GetByProfessional not configured")
	}
	return f.getByProfessionalFn(ctx, professionalID)
}

func (f *fakeRepo) Search(ctx context.Context, q store.AgendaSearch) ([]domain.Agenda, error) {
	if f.searchFn == nil {
		panic("Search not configured")
	}
	return f.searchFn(ctx, q)
}

func (f *fakeRepo) Mutate(ctx context.Context, id uuid.UUID, fn func(*domain.Agenda) error) (domain.Agenda, error) {
	if f.mutateFn == nil {
		panic("Mutate not configured")
	}
	return f.mutateFn(ctx, id, fn)
}

// mutatingRepo applies Mutate against an in-memory agenda, like the real repo
// does against a locked row.
func mutatingRepo(agenda domain.Agenda) *fakeRepo {
	return &fakeRepo{
		mutateFn: func(ctx context.Context, id uuid.UUID, fn func(*domain.Agenda) error) (domain.Agenda, error) {
			if err := fn(&agenda); err != nil {
				return domain.Agenda{}, err
			}
			return agenda, nil
		},
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCreate(t *testing.T) {
	var got domain.Agenda
	svc := NewService(&fakeRepo{
		createFn: func(ctx context.Context, agenda domain.Agenda) (domain.Agenda, error) {
			got = agenda
			return agenda, nil
		},
	})

	_, err := svc.Create(context.Background(), " 10 ", "1")
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ProfessionalID != "10" {
		t.Fatalf("professional = %q, want trimmed %q", got.ProfessionalID, "10")
	}
	if !got.Active {
		t.Fatalf("new agenda must start active")
	}
}

func TestCreate_Rejections(t *testing.T) {
	svc := NewService(&fakeRepo{
		createFn: func(ctx context.Context, agenda domain.Agenda) (domain.Agenda, error) {
			return domain.Agenda{}, store.ErrConflict
		},
	})

	_, err := svc.Create(context.Background(), "", "1")
	if got := apperr.CodeOf(err); got != "missing_professional" {
		t.Fatalf("code = %q, want %q", got, "missing_professional")
	}

	_, err = svc.Create(context.Background(), "10", " ")
	if got := apperr.CodeOf(err); got != "missing_caller" {
		t.Fatalf("code = %q, want %q", got, "missing_caller")
	}

	_, err = svc.Create(context.Background(), "10", "1")
	if got := apperr.CodeOf(err); got != "duplicate_professional" {
		t.Fatalf("code = %q, want %q", got, "duplicate_professional")
	}
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("kind = %v, want %v", apperr.KindOf(err), apperr.KindConflict)
	}
}

func TestLoadRevision_DefaultsEffectiveFromToToday(t *testing.T) {
	svc := NewService(mutatingRepo(domain.NewAgenda("10", "1")))
	svc.now = func() time.Time { return time.Date(2026, 1, 2, 15, 45, 0, 0, time.UTC) }

	agenda, err := svc.LoadRevision(context.Background(), uuid.New(), LoadRevisionInput{
		DefaultSlotMinutes: 30,
		Windows: []WindowInput{
			{Weekday: 0, Start: domain.NewTimeOfDay(9, 0), End: domain.NewTimeOfDay(13, 0)},
		},
		By: "1",
	})
	if err != nil {
		t.Fatalf("LoadRevision error: %v", err)
	}
	if len(agenda.Revisions) != 1 {
		t.Fatalf("len(Revisions) = %d, want 1", len(agenda.Revisions))
	}
	if !agenda.Revisions[0].EffectiveFrom.Equal(date(2026, 1, 2)) {
		t.Fatalf("EffectiveFrom = %v, want today at midnight", agenda.Revisions[0].EffectiveFrom)
	}
}

func TestLoadRevision_DomainErrorPassesThrough(t *testing.T) {
	svc := NewService(mutatingRepo(domain.NewAgenda("10", "1")))

	_, err := svc.LoadRevision(context.Background(), uuid.New(), LoadRevisionInput{
		DefaultSlotMinutes: 10,
		EffectiveFrom:      date(2026, 1, 2),
		Windows: []WindowInput{
			{Weekday: 0, Start: domain.NewTimeOfDay(9, 0), End: domain.NewTimeOfDay(13, 0)},
		},
		By: "1",
	})
	if got := apperr.CodeOf(err); got != "invalid_slot_duration" {
		t.Fatalf("code = %q, want %q", got, "invalid_slot_duration")
	}
}

func TestFreezeUnfreeze(t *testing.T) {
	agenda := domain.NewAgenda("10", "1")
	repo := mutatingRepo(agenda)
	svc := NewService(repo)
	id := uuid.New()

	start, end := date(2025, 12, 20), date(2026, 1, 10)
	if err := svc.Freeze(context.Background(), id, start, end, "vacaciones", "1"); err != nil {
		t.Fatalf("Freeze error: %v", err)
	}
	if err := svc.Unfreeze(context.Background(), id, start, end); err != nil {
		t.Fatalf("Unfreeze error: %v", err)
	}
	err := svc.Unfreeze(context.Background(), id, start, end)
	if got := apperr.CodeOf(err); got != "already_unfrozen" {
		t.Fatalf("code = %q, want %q", got, "already_unfrozen")
	}
}

func TestDeactivate_NotFound(t *testing.T) {
	svc := NewService(&fakeRepo{
		mutateFn: func(ctx context.Context, id uuid.UUID, fn func(*domain.Agenda) error) (domain.Agenda, error) {
			return domain.Agenda{}, store.ErrNotFound
		},
	})

	err := svc.Deactivate(context.Background(), uuid.New(), "1")
	if got := apperr.CodeOf(err); got != "agenda_not_found" {
		t.Fatalf("code = %q, want %q", got, "agenda_not_found")
	}
}

func TestSearch_ByProfessionalIgnoresPaging(t *testing.T) {
	agenda := domain.NewAgenda("10", "1")
	svc := NewService(&fakeRepo{
		getByProfessionalFn: func(ctx context.Context, professionalID string) (domain.Agenda, error) {
			if professionalID != "10" {
				return domain.Agenda{}, store.ErrNotFound
			}
			return agenda, nil
		},
	})

	got, err := svc.Search(context.Background(), SearchInput{ProfessionalID: "10", Limit: 1, Offset: 5})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(got) != 1 || got[0].ProfessionalID != "10" {
		t.Fatalf("result = %+v, want the professional's single agenda", got)
	}

	_, err = svc.Search(context.Background(), SearchInput{ProfessionalID: "404"})
	if code := apperr.CodeOf(err); code != "agenda_not_found" {
		t.Fatalf("code = %q, want %q", code, "agenda_not_found")
	}
}

func TestSearch_PageIndexedOffset(t *testing.T) {
	var got store.AgendaSearch
	svc := NewService(&fakeRepo{
		searchFn: func(ctx context.Context, q store.AgendaSearch) ([]domain.Agenda, error) {
			got = q
			return nil, nil
		},
	})

	active := true
	_, err := svc.Search(context.Background(), SearchInput{Active: &active, Limit: 10, Offset: 3})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if got.Limit != 10 || got.Offset != 30 {
		t.Fatalf("limit/offset = %d/%d, want 10/30 (offset counts pages)", got.Limit, got.Offset)
	}
	if got.Active == nil || !*got.Active {
		t.Fatalf("Active filter = %v, want true", got.Active)
	}
}
