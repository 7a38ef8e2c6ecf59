package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bar-table-reservation/internal/service"
)

// errorMapping ties a service error to its HTTP status and code.
type errorMapping struct {
	target error
	status int
	code   string
}

// errorMapper is checked in order: more specific errors come before the
// errors they wrap, and a deadline beats the storage error carrying it.
var errorMapper = []errorMapping{
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
	{service.ErrPartyTooLarge, http.StatusConflict, "party_too_large"},
	{service.ErrNoAvailability, http.StatusConflict, "no_availability"},
	{service.ErrTableConflict, http.StatusConflict, "table_conflict"},
	{service.ErrReservationsDisabled, http.StatusForbidden, "reservations_disabled"},
	{service.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
	{service.ErrNotFound, http.StatusNotFound, "not_found"},
	{service.ErrInvalidTransition, http.StatusUnprocessableEntity, "invalid_transition"},
	{service.ErrStorage, http.StatusServiceUnavailable, "storage_unavailable"},
}

// writeError renders err as {"error","code"}.  Unknown errors are
// logged and hidden behind a generic message.
func writeError(c echo.Context, err error) error {
	for _, m := range errorMapper {
		if errors.Is(err, m.target) {
			msg := err.Error()
			if m.status >= http.StatusInternalServerError {
				c.Logger().Error(err)
				msg = http.StatusText(m.status)
			}
			return c.JSON(m.status, echo.Map{"error": msg, "code": m.code})
		}
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error", "code": "internal"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "invalid_request"})
}
