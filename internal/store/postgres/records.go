package postgres

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"turnera/backend/internal/domain"
)

// The jsonb documents keep dates as "2006-01-02" and times of day as "15:04"
// strings; converting to the typed domain values happens only here.

const dateLayout = "2006-01-02"

type windowDoc struct {
	Weekday int    `json:"weekday"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type revisionDoc struct {
	DefaultSlotMinutes int         `json:"default_slot_minutes"`
	EffectiveFrom      string      `json:"effective_from"`
	CreatedBy          string      `json:"created_by"`
	CreatedAt          time.Time   `json:"created_at"`
	Windows            []windowDoc `json:"windows"`
}

type frozenPeriodDoc struct {
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Reason    string    `json:"reason"`
	Active    bool      `json:"active"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type reminderDoc struct {
	RecipientID string   `json:"recipient_id"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Methods     []string `json:"methods"`
	Active      bool     `json:"active"`
}

func jsonValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonScan(dst any, src any) error {
	switch s := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(s, dst)
	case string:
		return json.Unmarshal([]byte(s), dst)
	default:
		return fmt.Errorf("cannot scan %T into jsonb column", src)
	}
}

type revisionsColumn []revisionDoc

func (c revisionsColumn) Value() (driver.Value, error) { return jsonValue([]revisionDoc(c)) }
func (c *revisionsColumn) Scan(src any) error          { return jsonScan((*[]revisionDoc)(c), src) }

type frozenPeriodsColumn []frozenPeriodDoc

func (c frozenPeriodsColumn) Value() (driver.Value, error) { return jsonValue([]frozenPeriodDoc(c)) }
func (c *frozenPeriodsColumn) Scan(src any) error          { return jsonScan((*[]frozenPeriodDoc)(c), src) }

type remindersColumn []reminderDoc

func (c remindersColumn) Value() (driver.Value, error) { return jsonValue([]reminderDoc(c)) }
func (c *remindersColumn) Scan(src any) error          { return jsonScan((*[]reminderDoc)(c), src) }

type agendaRecord struct {
	bun.BaseModel `bun:"table:agendas"`

	ID             uuid.UUID           `bun:"id,pk,type:uuid"`
	ProfessionalID string              `bun:"professional_id,notnull"`
	OwnerUserID    string              `bun:"owner_user_id,notnull"`
	Active         bool                `bun:"active,notnull"`
	DeactivatedBy  *string             `bun:"deactivated_by"`
	DeactivatedAt  *time.Time          `bun:"deactivated_at"`
	Revisions      revisionsColumn     `bun:"revisions,type:jsonb,notnull"`
	FrozenPeriods  frozenPeriodsColumn `bun:"frozen_periods,type:jsonb,notnull"`
	CreatedAt      time.Time           `bun:"created_at,notnull"`
}

func (a *agendaRecord) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now().UTC()
		}
	}
	return nil
}

type turnoRecord struct {
	bun.BaseModel `bun:"table:turnos"`

	ID              uuid.UUID       `bun:"id,pk,type:uuid"`
	AgendaID        uuid.UUID       `bun:"agenda_id,notnull,type:uuid"`
	ReservationDate time.Time       `bun:"reservation_date,notnull,type:date"`
	StartTime       string          `bun:"start_time,notnull"`
	PatientID       string          `bun:"patient_id,notnull"`
	DurationMinutes int             `bun:"duration_minutes,notnull"`
	CreatedBy       string          `bun:"created_by,notnull"`
	CreatedAt       time.Time       `bun:"created_at,notnull"`
	Status          string          `bun:"status,notnull"`
	StatusBy        string          `bun:"status_by,notnull"`
	StatusAt        time.Time       `bun:"status_at,notnull"`
	PrevStatus      *string         `bun:"prev_status"`
	PrevStatusBy    *string         `bun:"prev_status_by"`
	PrevStatusAt    *time.Time      `bun:"prev_status_at"`
	Reminders       remindersColumn `bun:"reminders,type:jsonb,notnull"`
}

func (t *turnoRecord) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if t.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			t.ID = id
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = time.Now().UTC()
		}
	}
	return nil
}

func toAgendaRecord(a domain.Agenda) agendaRecord {
	rec := agendaRecord{
		ID:             a.ID,
		ProfessionalID: a.ProfessionalID,
		OwnerUserID:    a.OwnerUserID,
		Active:         a.Active,
		Revisions:      make(revisionsColumn, 0, len(a.Revisions)),
		FrozenPeriods:  make(frozenPeriodsColumn, 0, len(a.FrozenPeriods)),
		CreatedAt:      a.CreatedAt,
	}
	if a.Deactivation != nil {
		by := a.Deactivation.By
		at := a.Deactivation.At
		rec.DeactivatedBy = &by
		rec.DeactivatedAt = &at
	}
	for _, rev := range a.Revisions {
		doc := revisionDoc{
			DefaultSlotMinutes: rev.DefaultSlotMinutes,
			EffectiveFrom:      rev.EffectiveFrom.Format(dateLayout),
			CreatedBy:          rev.CreatedBy,
			CreatedAt:          rev.CreatedAt,
			Windows:            make([]windowDoc, 0, len(rev.Windows)),
		}
		for _, w := range rev.Windows {
			doc.Windows = append(doc.Windows, windowDoc{
				Weekday: w.Weekday,
				Start:   w.Start.String(),
				End:     w.End.String(),
			})
		}
		rec.Revisions = append(rec.Revisions, doc)
	}
	for _, p := range a.FrozenPeriods {
		rec.FrozenPeriods = append(rec.FrozenPeriods, frozenPeriodDoc{
			StartDate: p.StartDate.Format(dateLayout),
			EndDate:   p.EndDate.Format(dateLayout),
			Reason:    p.Reason,
			Active:    p.Active,
			CreatedBy: p.CreatedBy,
			CreatedAt: p.CreatedAt,
		})
	}
	return rec
}

func fromAgendaRecord(rec agendaRecord) (domain.Agenda, error) {
	a := domain.Agenda{
		ID:             rec.ID,
		ProfessionalID: rec.ProfessionalID,
		OwnerUserID:    rec.OwnerUserID,
		Active:         rec.Active,
		CreatedAt:      rec.CreatedAt,
	}
	if rec.DeactivatedBy != nil && rec.DeactivatedAt != nil {
		a.Deactivation = &domain.Deactivation{By: *rec.DeactivatedBy, At: *rec.DeactivatedAt}
	}
	for _, doc := range rec.Revisions {
		effectiveFrom, err := time.Parse(dateLayout, doc.EffectiveFrom)
		if err != nil {
			return domain.Agenda{}, fmt.Errorf("agenda %s: bad revision date: %w", rec.ID, err)
		}
		rev := domain.ScheduleRevision{
			DefaultSlotMinutes: doc.DefaultSlotMinutes,
			EffectiveFrom:      effectiveFrom,
			CreatedBy:          doc.CreatedBy,
			CreatedAt:          doc.CreatedAt,
			Windows:            make([]domain.WeekdayWindow, 0, len(doc.Windows)),
		}
		for _, w := range doc.Windows {
			start, err := domain.ParseTimeOfDay(w.Start)
			if err != nil {
				return domain.Agenda{}, fmt.Errorf("agenda %s: %w", rec.ID, err)
			}
			end, err := domain.ParseTimeOfDay(w.End)
			if err != nil {
				return domain.Agenda{}, fmt.Errorf("agenda %s: %w", rec.ID, err)
			}
			rev.Windows = append(rev.Windows, domain.WeekdayWindow{Weekday: w.Weekday, Start: start, End: end})
		}
		a.Revisions = append(a.Revisions, rev)
	}
	for _, doc := range rec.FrozenPeriods {
		startDate, err := time.Parse(dateLayout, doc.StartDate)
		if err != nil {
			return domain.Agenda{}, fmt.Errorf("agenda %s: bad frozen period date: %w", rec.ID, err)
		}
		endDate, err := time.Parse(dateLayout, doc.EndDate)
		if err != nil {
			return domain.Agenda{}, fmt.Errorf("agenda %s: bad frozen period date: %w", rec.ID, err)
		}
		a.FrozenPeriods = append(a.FrozenPeriods, domain.FrozenPeriod{
			StartDate: startDate,
			EndDate:   endDate,
			Reason:    doc.Reason,
			Active:    doc.Active,
			CreatedBy: doc.CreatedBy,
			CreatedAt: doc.CreatedAt,
		})
	}
	return a, nil
}

func toTurnoRecord(t domain.Turno) turnoRecord {
	rec := turnoRecord{
		ID:              t.ID,
		AgendaID:        t.AgendaID,
		ReservationDate: t.ReservationDate,
		StartTime:       t.StartTime.String(),
		PatientID:       t.PatientID,
		DurationMinutes: t.DurationMinutes,
		CreatedBy:       t.CreatedBy,
		CreatedAt:       t.CreatedAt,
		Status:          string(t.CurrentStatus.Status),
		StatusBy:        t.CurrentStatus.By,
		StatusAt:        t.CurrentStatus.At,
		Reminders:       make(remindersColumn, 0, len(t.Reminders)),
	}
	if t.PreviousStatus != nil {
		s := string(t.PreviousStatus.Status)
		by := t.PreviousStatus.By
		at := t.PreviousStatus.At
		rec.PrevStatus = &s
		rec.PrevStatusBy = &by
		rec.PrevStatusAt = &at
	}
	for _, r := range t.Reminders {
		methods := make([]string, 0, len(r.Methods))
		for _, m := range r.Methods {
			methods = append(methods, string(m))
		}
		rec.Reminders = append(rec.Reminders, reminderDoc{
			RecipientID: r.RecipientID,
			Date:        r.Date.Format(dateLayout),
			Time:        r.Time.String(),
			Methods:     methods,
			Active:      r.Active,
		})
	}
	return rec
}

func fromTurnoRecord(rec turnoRecord) (domain.Turno, error) {
	startTime, err := domain.ParseTimeOfDay(rec.StartTime)
	if err != nil {
		return domain.Turno{}, fmt.Errorf("turno %s: %w", rec.ID, err)
	}
	t := domain.Turno{
		ID:              rec.ID,
		AgendaID:        rec.AgendaID,
		ReservationDate: domain.DateOf(rec.ReservationDate),
		StartTime:       startTime,
		PatientID:       rec.PatientID,
		DurationMinutes: rec.DurationMinutes,
		CreatedBy:       rec.CreatedBy,
		CreatedAt:       rec.CreatedAt,
		CurrentStatus: domain.StatusRecord{
			Status: domain.Status(rec.Status),
			By:     rec.StatusBy,
			At:     rec.StatusAt,
		},
	}
	if rec.PrevStatus != nil && rec.PrevStatusBy != nil && rec.PrevStatusAt != nil {
		t.PreviousStatus = &domain.StatusRecord{
			Status: domain.Status(*rec.PrevStatus),
			By:     *rec.PrevStatusBy,
			At:     *rec.PrevStatusAt,
		}
	}
	for _, doc := range rec.Reminders {
		date, err := time.Parse(dateLayout, doc.Date)
		if err != nil {
			return domain.Turno{}, fmt.Errorf("turno %s: bad reminder date: %w", rec.ID, err)
		}
		at, err := domain.ParseTimeOfDay(doc.Time)
		if err != nil {
			return domain.Turno{}, fmt.Errorf("turno %s: %w", rec.ID, err)
		}
		methods := make([]domain.NotificationMethod, 0, len(doc.Methods))
		for _, m := range doc.Methods {
			methods = append(methods, domain.NotificationMethod(m))
		}
		t.Reminders = append(t.Reminders, domain.Reminder{
			RecipientID: doc.RecipientID,
			Date:        date,
			Time:        at,
			Methods:     methods,
			Active:      doc.Active,
		})
	}
	return t, nil
}
