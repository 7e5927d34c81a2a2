package http

import (
	"time"

	"turnera/backend/internal/apperr"
	"turnera/backend/internal/domain"
)

const dateLayout = "2006-01-02"

func parseDate(field, s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid_date", field+" must be a YYYY-MM-DD date")
	}
	return d, nil
}

func parseClock(field, s string) (domain.TimeOfDay, error) {
	t, err := domain.ParseTimeOfDay(s)
	if err != nil {
		return 0, apperr.Validation("invalid_time", field+" must be an HH:MM time")
	}
	return t, nil
}

type createAgendaRequest struct {
	ProfessionalID string `json:"professionalId"`
}

type createdResponse struct {
	ID string `json:"id"`
}

type windowDTO struct {
	Weekday int    `json:"weekday"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type loadRevisionRequest struct {
	DefaultSlotMinutes int         `json:"defaultSlotMinutes"`
	EffectiveFrom      string      `json:"effectiveFrom"`
	Windows            []windowDTO `json:"windows"`
}

type freezeRequest struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason"`
}

type revisionDTO struct {
	DefaultSlotMinutes int         `json:"defaultSlotMinutes"`
	EffectiveFrom      string      `json:"effectiveFrom"`
	CreatedBy          string      `json:"createdBy"`
	CreatedAt          time.Time   `json:"createdAt"`
	Windows            []windowDTO `json:"windows"`
}

type frozenPeriodDTO struct {
	Start     string    `json:"start"`
	End       string    `json:"end"`
	Reason    string    `json:"reason"`
	Active    bool      `json:"active"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type deactivationDTO struct {
	By string    `json:"by"`
	At time.Time `json:"at"`
}

type agendaDTO struct {
	ID             string            `json:"id"`
	ProfessionalID string            `json:"professionalId"`
	OwnerUserID    string            `json:"ownerUserId"`
	Active         bool              `json:"active"`
	Deactivation   *deactivationDTO  `json:"deactivation,omitempty"`
	Revisions      []revisionDTO     `json:"revisions"`
	FrozenPeriods  []frozenPeriodDTO `json:"frozenPeriods"`
	CreatedAt      time.Time         `json:"createdAt"`
}

func toAgendaDTO(a domain.Agenda) agendaDTO {
	dto := agendaDTO{
		ID:             a.ID.String(),
		ProfessionalID: a.ProfessionalID,
		OwnerUserID:    a.OwnerUserID,
		Active:         a.Active,
		Revisions:      make([]revisionDTO, 0, len(a.Revisions)),
		FrozenPeriods:  make([]frozenPeriodDTO, 0, len(a.FrozenPeriods)),
		CreatedAt:      a.CreatedAt,
	}
	if a.Deactivation != nil {
		dto.Deactivation = &deactivationDTO{By: a.Deactivation.By, At: a.Deactivation.At}
	}
	for _, rev := range a.Revisions {
		r := revisionDTO{
			DefaultSlotMinutes: rev.DefaultSlotMinutes,
			EffectiveFrom:      rev.EffectiveFrom.Format(dateLayout),
			CreatedBy:          rev.CreatedBy,
			CreatedAt:          rev.CreatedAt,
			Windows:            make([]windowDTO, 0, len(rev.Windows)),
		}
		for _, w := range rev.Windows {
			r.Windows = append(r.Windows, windowDTO{Weekday: w.Weekday, Start: w.Start.String(), End: w.End.String()})
		}
		dto.Revisions = append(dto.Revisions, r)
	}
	for _, p := range a.FrozenPeriods {
		dto.FrozenPeriods = append(dto.FrozenPeriods, frozenPeriodDTO{
			Start:     p.StartDate.Format(dateLayout),
			End:       p.EndDate.Format(dateLayout),
			Reason:    p.Reason,
			Active:    p.Active,
			CreatedBy: p.CreatedBy,
			CreatedAt: p.CreatedAt,
		})
	}
	return dto
}

type bookRequest struct {
	ProfessionalID  string `json:"professionalId"`
	ReservationDate string `json:"reservationDate"`
	StartTime       string `json:"startTime"`
	PatientID       string `json:"patientId"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

type reminderRequest struct {
	Date    string   `json:"date"`
	Time    string   `json:"time"`
	Methods []string `json:"methods"`
}

type statusDTO struct {
	Status string    `json:"status"`
	By     string    `json:"by"`
	At     time.Time `json:"at"`
}

type reminderDTO struct {
	RecipientID string   `json:"recipientId"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Methods     []string `json:"methods"`
	Active      bool     `json:"active"`
}

type turnoDTO struct {
	ID              string        `json:"id"`
	AgendaID        string        `json:"agendaId"`
	ReservationDate string        `json:"reservationDate"`
	StartTime       string        `json:"startTime"`
	PatientID       string        `json:"patientId"`
	DurationMinutes int           `json:"durationMinutes"`
	CreatedBy       string        `json:"createdBy"`
	CreatedAt       time.Time     `json:"createdAt"`
	CurrentStatus   statusDTO     `json:"currentStatus"`
	PreviousStatus  *statusDTO    `json:"previousStatus,omitempty"`
	Reminders       []reminderDTO `json:"reminders"`
}

func toTurnoDTO(t domain.Turno) turnoDTO {
	dto := turnoDTO{
		ID:              t.ID.String(),
		AgendaID:        t.AgendaID.String(),
		ReservationDate: t.ReservationDate.Format(dateLayout),
		StartTime:       t.StartTime.String(),
		PatientID:       t.PatientID,
		DurationMinutes: t.DurationMinutes,
		CreatedBy:       t.CreatedBy,
		CreatedAt:       t.CreatedAt,
		CurrentStatus: statusDTO{
			Status: string(t.CurrentStatus.Status),
			By:     t.CurrentStatus.By,
			At:     t.CurrentStatus.At,
		},
		Reminders: make([]reminderDTO, 0, len(t.Reminders)),
	}
	if t.PreviousStatus != nil {
		dto.PreviousStatus = &statusDTO{
			Status: string(t.PreviousStatus.Status),
			By:     t.PreviousStatus.By,
			At:     t.PreviousStatus.At,
		}
	}
	for _, r := range t.Reminders {
		methods := make([]string, 0, len(r.Methods))
		for _, m := range r.Methods {
			methods = append(methods, string(m))
		}
		dto.Reminders = append(dto.Reminders, reminderDTO{
			RecipientID: r.RecipientID,
			Date:        r.Date.Format(dateLayout),
			Time:        r.Time.String(),
			Methods:     methods,
			Active:      r.Active,
		})
	}
	return dto
}

func toTurnoDTOs(ts []domain.Turno) []turnoDTO {
	out := make([]turnoDTO, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTurnoDTO(t))
	}
	return out
}

func toAgendaDTOs(as []domain.Agenda) []agendaDTO {
	out := make([]agendaDTO, 0, len(as))
	for _, a := range as {
		out = append(out, toAgendaDTO(a))
	}
	return out
}
