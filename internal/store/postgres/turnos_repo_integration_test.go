package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"turnera/backend/internal/domain"
)

func TestPostgresIntegration_BookingTxCreateAndList(t *testing.T) {
	databaseURL := strings.TrimSpace(os.Getenv("TURNERA_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("TURNERA_TEST_DATABASE_URL not set")
	}

	db, err := Open(databaseURL, PoolConfig{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	schema := "turnera_test_" + randomHex(t, 8)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = db.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(ctx)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	agendaID := uuid.MustParse("00000000-0000-0000-0000-000000000601")
	reservationDate := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewRaw("SET LOCAL search_path TO " + schema).Exec(ctx); err != nil {
			return err
		}
		if err := applyMigrations(ctx, tx); err != nil {
			return err
		}

		b := bookingTx{tx: tx}

		created, err := b.CreateTurno(ctx, domain.Turno{
			AgendaID:        agendaID,
			ReservationDate: reservationDate,
			StartTime:       domain.NewTimeOfDay(9, 30),
			PatientID:       "14",
			DurationMinutes: 45,
			CreatedBy:       "1",
			CurrentStatus: domain.StatusRecord{
				Status: domain.StatusPending,
				By:     "1",
				At:     time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC),
			},
		})
		if err != nil {
			return err
		}
		if created.ID == uuid.Nil {
			return fmt.Errorf("expected a generated id")
		}
		if created.CreatedAt.IsZero() {
			return fmt.Errorf("expected created_at to be set")
		}

		byAgenda, err := b.TurnosForAgendaOnDate(ctx, agendaID, reservationDate)
		if err != nil {
			return err
		}
		if len(byAgenda) != 1 || byAgenda[0].ID != created.ID {
			return fmt.Errorf("agenda list = %+v, want the created turno", byAgenda)
		}
		if byAgenda[0].StartTime != domain.NewTimeOfDay(9, 30) {
			return fmt.Errorf("start time read back = %v", byAgenda[0].StartTime)
		}
		if !byAgenda[0].ReservationDate.Equal(reservationDate) {
			return fmt.Errorf("reservation date read back = %v", byAgenda[0].ReservationDate)
		}

		byPatient, err := b.TurnosForPatientOnDate(ctx, "14", reservationDate)
		if err != nil {
			return err
		}
		if len(byPatient) != 1 || byPatient[0].ID != created.ID {
			return fmt.Errorf("patient list = %+v, want the created turno", byPatient)
		}

		other, err := b.TurnosForAgendaOnDate(ctx, agendaID, reservationDate.AddDate(0, 0, 1))
		if err != nil {
			return err
		}
		if len(other) != 0 {
			return fmt.Errorf("next-day list = %+v, want empty", other)
		}

		return nil
	})
	if err != nil {
		t.Fatalf("tx error: %v", err)
	}
}

func randomHex(t *testing.T, bytesLen int) string {
	t.Helper()
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}

type rawExecutor interface {
	NewRaw(query string, args ...any) *bun.RawQuery
}

func applyMigrations(ctx context.Context, exec rawExecutor) error {
	dir, err := migrationsDir()
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	type mig struct {
		name string
		path string
	}
	migs := make([]mig, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		migs = append(migs, mig{name: e.Name(), path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].name < migs[j].name })

	for _, m := range migs {
		b, err := os.ReadFile(m.path)
		if err != nil {
			return err
		}
		upSQL, err := extractGooseUp(string(b))
		if err != nil {
			return err
		}
		for _, stmt := range splitSQLStatements(upSQL) {
			if _, err := exec.NewRaw(stmt).Exec(ctx); err != nil {
				return err
			}
		}
	}

	return nil
}

func migrationsDir() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("runtime.Caller failed")
	}
	base := filepath.Dir(file)
	return filepath.Clean(filepath.Join(base, "..", "..", "..", "migrations")), nil
}

func extractGooseUp(sql string) (string, error) {
	upMarker := "-- +goose Up"
	downMarker := "-- +goose Down"

	upIdx := strings.Index(sql, upMarker)
	if upIdx < 0 {
		return "", fmt.Errorf("missing goose up marker")
	}
	afterUp := sql[upIdx+len(upMarker):]
	afterUp = strings.TrimLeft(afterUp, "\r\n")

	downIdx := strings.Index(afterUp, downMarker)
	if downIdx < 0 {
		return strings.TrimSpace(afterUp), nil
	}
	return strings.TrimSpace(afterUp[:downIdx]), nil
}

func splitSQLStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
