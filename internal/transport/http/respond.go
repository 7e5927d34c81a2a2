package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"turnera/backend/internal/apperr"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) respondError(c echo.Context, err error) error {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		h.log.Error("request failed", slog.Any("err", err), slog.String("path", c.Path()))
		return c.JSON(http.StatusInternalServerError, errorResponse{
			Code:    "internal",
			Message: "internal error",
		})
	}

	status := statusFor(appErr.Kind)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", slog.Any("err", err), slog.String("path", c.Path()))
		return c.JSON(status, errorResponse{Code: "internal", Message: "internal error"})
	}

	h.log.Warn("request rejected",
		slog.String("code", appErr.Code),
		slog.String("path", c.Path()),
	)
	return c.JSON(status, errorResponse{Code: appErr.Code, Message: appErr.Message})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation, apperr.KindPolicy:
		return http.StatusUnprocessableEntity
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
