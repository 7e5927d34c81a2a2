// Package http exposes the engine over REST. Handlers stay thin: decode,
// resolve the caller, delegate, encode.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"turnera/backend/internal/apperr"
	"turnera/backend/internal/domain"
	"turnera/backend/internal/service/agendas"
	"turnera/backend/internal/service/turnos"
)

// CallerHeader carries the pre-authenticated user id set by the gateway. The
// engine never resolves identity itself.
const CallerHeader = "X-User-Id"

type agendaService interface {
	Create(ctx context.Context, professionalID, ownerUserID string) (domain.Agenda, error)
	LoadRevision(ctx context.Context, agendaID uuid.UUID, in agendas.LoadRevisionInput) (domain.Agenda, error)
	Freeze(ctx context.Context, agendaID uuid.UUID, start, end time.Time, reason, by string) error
	Unfreeze(ctx context.Context, agendaID uuid.UUID, start, end time.Time) error
	Deactivate(ctx context.Context, agendaID uuid.UUID, by string) error
	Get(ctx context.Context, agendaID uuid.UUID) (domain.Agenda, error)
	Search(ctx context.Context, in agendas.SearchInput) ([]domain.Agenda, error)
}

type turnoService interface {
	Book(ctx context.Context, in turnos.BookInput) (domain.Turno, error)
	ChangeStatus(ctx context.Context, turnoID uuid.UUID, newStatus domain.Status, by string) (domain.Turno, error)
	Get(ctx context.Context, turnoID uuid.UUID) (domain.Turno, error)
	Search(ctx context.Context, in turnos.SearchInput) ([]domain.Turno, error)
	ScheduleReminder(ctx context.Context, turnoID uuid.UUID, in turnos.ReminderInput) (domain.Turno, error)
	DeactivateReminder(ctx context.Context, turnoID uuid.UUID, side domain.ReminderSide, date time.Time, at domain.TimeOfDay) (domain.Turno, error)
}

type Handler struct {
	agendas agendaService
	turnos  turnoService
	log     *slog.Logger
}

func NewHandler(agendaSvc agendaService, turnoSvc turnoService, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		agendas: agendaSvc,
		turnos:  turnoSvc,
		log:     log.With(slog.String("component", "http")),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/turnos")

	g.POST("/agendas", h.CreateAgenda)
	g.GET("/agendas", h.SearchAgendas)
	g.GET("/agendas/:id", h.GetAgenda)
	g.PATCH("/agendas/:id", h.LoadRevision)
	g.DELETE("/agendas/:id", h.DeactivateAgenda)
	g.POST("/agendas/:id/freeze", h.FreezeAgenda)
	g.POST("/agendas/:id/unfreeze", h.UnfreezeAgenda)

	g.POST("/turno", h.BookTurno)
	g.GET("/turno", h.SearchTurnos)
	g.GET("/turno/:id", h.GetTurno)
	g.PATCH("/turno/:id", h.ChangeStatus)
	g.POST("/turno/:id/reminders/professional", h.remindHandler(domain.SideProfessional))
	g.POST("/turno/:id/reminders/patient", h.remindHandler(domain.SidePatient))
	g.POST("/turno/:id/reminders/professional/deactivate", h.unremindHandler(domain.SideProfessional))
	g.POST("/turno/:id/reminders/patient/deactivate", h.unremindHandler(domain.SidePatient))
}

func (h *Handler) CreateAgenda(c echo.Context) error {
	by, err := caller(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var req createAgendaRequest
	if err := c.Bind(&req); err != nil {
		return h.respondError(c, bindErr(err))
	}

	agenda, err := h.agendas.Create(c.Request().Context(), req.ProfessionalID, by)
	if err != nil {
		return h.respondError(c, err)
	}

	h.log.Info("agenda created",
		slog.String("agenda_id", agenda.ID.String()),
		slog.String("professional_id", agenda.ProfessionalID),
	)
	c.Response().Header().Set("Location", "/turnos/agendas/"+agenda.ID.String())
	return c.JSON(http.StatusCreated, createdResponse{ID: agenda.ID.String()})
}

func (h *Handler) LoadRevision(c echo.Context) error {
	by, err := caller(c)
	if err != nil {
		return h.respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var req loadRevisionRequest
	if err := c.Bind(&req); err != nil {
		return h.respondError(c, bindErr(err))
	}

	in := agendas.LoadRevisionInput{
		DefaultSlotMinutes: req.DefaultSlotMinutes,
		Windows:            make([]agendas.WindowInput, 0, len(req.Windows)),
		By:                 by,
	}
	if req.EffectiveFrom != "" {
		in.EffectiveFrom, err = parseDate("effectiveFrom", req.EffectiveFrom)
		if err != nil {
			return h.respondError(c, err)
		}
	}
	for _, w := range req.Windows {
		start, err := parseClock("start", w.Start)
		if err != nil {
			return h.respondError(c, err)
		}
		end, err := parseClock("end", w.End)
		if err != nil {
			return h.respondError(c, err)
		}
		in.Windows = append(in.Windows, agendas.WindowInput{Weekday: w.Weekday, Start: start, End: end})
	}

	agenda, err := h.agendas.LoadRevision(c.Request().Context(), id, in)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, toAgendaDTO(agenda))
}

func (h *Handler) GetAgenda(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	agenda, err := h.agendas.Get(c.Request().Context(), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, toAgendaDTO(agenda))
}

func (h *Handler) SearchAgendas(c echo.Context) error {
	in := agendas.SearchInput{
		ProfessionalID: c.QueryParam("professionalId"),
		Limit:          queryInt(c, "limit", 20),
		Offset:         queryInt(c, "offset", 0),
	}
	if v := c.QueryParam("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return h.respondError(c, apperr.Validation("invalid_active", "active must be a boolean"))
		}
		in.Active = &active
	}

	found, err := h.agendas.Search(c.Request().Context(), in)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, toAgendaDTOs(found))
}

func (h *Handler) DeactivateAgenda(c echo.Context) error {
	by, err := caller(c)
	if err != nil {
		return h.respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	if err := h.agendas.Deactivate(c.Request().Context(), id, by); err != nil {
		return h.respondError(c, err)
	}
	h.log.Info("agenda deactivated", slog.String("agenda_id", id.String()))
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) FreezeAgenda(c echo.Context) error {
	by, err := caller(c)
	if err != nil {
		return h.respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var req freezeRequest
	if err := c.Bind(&req); err != nil {
		return h.respondError(c, bindErr(err))
	}
	start, err := parseDate("start", req.Start)
	if err != nil {
		return h.respondError(c, err)
	}
	end, err := parseDate("end", req.End)
	if err != nil {
		return h.respondError(c, err)
	}

	if err := h.agendas.Freeze(c.Request().Context(), id, start, end, req.Reason, by); err != nil {
		return h.respondError(c, err)
	}
	h.log.Info("agenda frozen",
		slog.String("agenda_id", id.String()),
		slog.String("start", req.Start),
		slog.String("end", req.End),
	)
	return c.NoContent(http.StatusOK)
}

func (h *Handler) UnfreezeAgenda(c echo.Context) error {
	if _, err := caller(c); err != nil {
		return h.respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	start, err := parseDate("start", c.QueryParam("start"))
	if err != nil {
		return h.respondError(c, err)
	}
	end, err := parseDate("end", c.QueryParam("end"))
	if err != nil {
		return h.respondError(c, err)
	}

	if err := h.agendas.Unfreeze(c.Request().Context(), id, start, end); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusOK)
}

func (h *Handler) BookTurno(c echo.Context) error {
	by, err := caller(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return h.respondError(c, bindErr(err))
	}
	date, err := parseDate("reservationDate", req.ReservationDate)
	if err != nil {
		return h.respondError(c, err)
	}
	start, err := parseClock("startTime", req.StartTime)
	if err != nil {
		return h.respondError(c, err)
	}

	turno, err := h.turnos.Book(c.Request().Context(), turnos.BookInput{
		ProfessionalID:  req.ProfessionalID,
		ReservationDate: date,
		StartTime:       start,
		PatientID:       req.PatientID,
		DurationMinutes: req.DurationMinutes,
		By:              by,
	})
	if err != nil {
		return h.respondError(c, err)
	}

	h.log.Info("turno booked",
		slog.String("turno_id", turno.ID.String()),
		slog.String("agenda_id", turno.AgendaID.String()),
		slog.String("patient_id", turno.PatientID),
		slog.String("date", req.ReservationDate),
		slog.String("time", req.StartTime),
	)
	c.Response().Header().Set("Location", "/turnos/turno/"+turno.ID.String())
	return c.JSON(http.StatusCreated, createdResponse{ID: turno.ID.String()})
}

func (h *Handler) ChangeStatus(c echo.Context) error {
	by, err := caller(c)
	if err != nil {
		return h.respondError(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var req changeStatusRequest
	if err := c.Bind(&req); err != nil {
		return h.respondError(c, bindErr(err))
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		return h.respondError(c, err)
	}

	turno, err := h.turnos.ChangeStatus(c.Request().Context(), id, status, by)
	if err != nil {
		return h.respondError(c, err)
	}
	h.log.Info("turno status changed",
		slog.String("turno_id", id.String()),
		slog.String("status", req.Status),
	)
	return c.JSON(http.StatusOK, toTurnoDTO(turno))
}

func (h *Handler) GetTurno(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return h.respondError(c, err)
	}
	turno, err := h.turnos.Get(c.Request().Context(), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, toTurnoDTO(turno))
}

func (h *Handler) SearchTurnos(c echo.Context) error {
	in := turnos.SearchInput{
		ProfessionalID: c.QueryParam("professionalId"),
		PatientID:      c.QueryParam("patientId"),
		Limit:          queryInt(c, "limit", 20),
		Offset:         queryInt(c, "offset", 0),
	}
	if v := c.QueryParam("dateFrom"); v != "" {
		d, err := parseDate("dateFrom", v)
		if err != nil {
			return h.respondError(c, err)
		}
		in.DateFrom = &d
	}
	if v := c.QueryParam("dateTo"); v != "" {
		d, err := parseDate("dateTo", v)
		if err != nil {
			return h.respondError(c, err)
		}
		in.DateTo = &d
	}
	if v := c.QueryParam("status"); v != "" {
		status, err := domain.ParseStatus(v)
		if err != nil {
			return h.respondError(c, err)
		}
		in.Status = &status
	}

	found, err := h.turnos.Search(c.Request().Context(), in)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, toTurnoDTOs(found))
}

func (h *Handler) remindHandler(side domain.ReminderSide) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := caller(c); err != nil {
			return h.respondError(c, err)
		}
		id, err := pathID(c)
		if err != nil {
			return h.respondError(c, err)
		}
		var req reminderRequest
		if err := c.Bind(&req); err != nil {
			return h.respondError(c, bindErr(err))
		}
		date, err := parseDate("date", req.Date)
		if err != nil {
			return h.respondError(c, err)
		}
		at, err := parseClock("time", req.Time)
		if err != nil {
			return h.respondError(c, err)
		}
		methods := make([]domain.NotificationMethod, 0, len(req.Methods))
		for _, m := range req.Methods {
			method, err := domain.ParseNotificationMethod(m)
			if err != nil {
				return h.respondError(c, err)
			}
			methods = append(methods, method)
		}

		turno, err := h.turnos.ScheduleReminder(c.Request().Context(), id, turnos.ReminderInput{
			Side:    side,
			Date:    date,
			Time:    at,
			Methods: methods,
		})
		if err != nil {
			return h.respondError(c, err)
		}
		return c.JSON(http.StatusOK, toTurnoDTO(turno))
	}
}

func (h *Handler) unremindHandler(side domain.ReminderSide) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := caller(c); err != nil {
			return h.respondError(c, err)
		}
		id, err := pathID(c)
		if err != nil {
			return h.respondError(c, err)
		}
		date, err := parseDate("date", c.QueryParam("date"))
		if err != nil {
			return h.respondError(c, err)
		}
		at, err := parseClock("time", c.QueryParam("time"))
		if err != nil {
			return h.respondError(c, err)
		}

		turno, err := h.turnos.DeactivateReminder(c.Request().Context(), id, side, date, at)
		if err != nil {
			return h.respondError(c, err)
		}
		return c.JSON(http.StatusOK, toTurnoDTO(turno))
	}
}

func caller(c echo.Context) (string, error) {
	by := strings.TrimSpace(c.Request().Header.Get(CallerHeader))
	if by == "" {
		return "", apperr.Validation("missing_caller", CallerHeader+" header is required")
	}
	return by, nil
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid_id", "id must be a UUID")
	}
	return id, nil
}

func queryInt(c echo.Context, name string, fallback int) int {
	v := c.QueryParam(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func bindErr(err error) error {
	return apperr.Validation("malformed_body", "request body could not be decoded")
}
