package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bar-table-reservation/internal/middleware"
	"github.com/iliyamo/bar-table-reservation/internal/model"
	"github.com/iliyamo/bar-table-reservation/internal/service"
)

// ReservationHandler serves slot search, booking and the staff side of
// the reservation lifecycle.  Authentication and bar scoping happen in
// middleware.
type ReservationHandler struct {
	Svc *service.Service
}

func NewReservationHandler(svc *service.Service) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{Svc: svc}
}

// resultResp is the body of mutating reservation endpoints.
type resultResp struct {
	Reservation model.Reservation `json:"reservation"`
	Warnings    []string          `json:"warnings,omitempty"`
}

// queryInt parses an optional integer query parameter.  Missing means 0.
func queryInt(c echo.Context, name string) (int, bool) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}

// Slots handles GET /v1/bars/:barId/slots?date=&party_size=&duration=.
func (h *ReservationHandler) Slots(c echo.Context) error {
	party, ok := queryInt(c, "party_size")
	if !ok {
		return badRequest(c, "invalid party_size")
	}
	duration, ok := queryInt(c, "duration")
	if !ok {
		return badRequest(c, "invalid duration")
	}
	date := strings.TrimSpace(c.QueryParam("date"))
	if date == "" {
		return badRequest(c, "date is required")
	}
	slots, err := h.Svc.GetAvailableSlots(c.Request().Context(), service.SlotQuery{
		BarID: c.Param("barId"), Date: date, PartySize: party, DurationMins: duration,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": date, "slots": slots})
}

// Availability handles GET /v1/bars/:barId/availability?start_at=&party_size=&duration=.
func (h *ReservationHandler) Availability(c echo.Context) error {
	start, err := time.Parse(time.RFC3339, c.QueryParam("start_at"))
	if err != nil {
		return badRequest(c, "start_at must be RFC3339")
	}
	party, ok := queryInt(c, "party_size")
	if !ok {
		return badRequest(c, "invalid party_size")
	}
	duration, ok := queryInt(c, "duration")
	if !ok {
		return badRequest(c, "invalid duration")
	}
	rep, err := h.Svc.CheckSlotAvailability(c.Request().Context(), service.AvailabilityQuery{
		BarID: c.Param("barId"), StartAt: start, DurationMins: duration, PartySize: party,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}

type createReq struct {
	StartAt       time.Time `json:"start_at"`
	DurationMins  int       `json:"duration_mins"`
	PartySize     int       `json:"party_size"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	CustomerEmail *string   `json:"customer_email"`
	Notes         *string   `json:"notes"`
}

// Create handles POST /v1/bars/:barId/reservations.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.StartAt.IsZero() {
		return badRequest(c, "start_at is required")
	}
	res, err := h.Svc.CreateReservation(c.Request().Context(), service.CreateRequest{
		BarID:         c.Param("barId"),
		StartAt:       req.StartAt,
		DurationMins:  req.DurationMins,
		PartySize:     req.PartySize,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		Notes:         req.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, resultResp{Reservation: res.Reservation, Warnings: res.Warnings})
}

// List handles GET /v1/bars/:barId/reservations?status=a,b.
func (h *ReservationHandler) List(c echo.Context) error {
	var statuses []model.Status
	for _, s := range strings.Split(c.QueryParam("status"), ",") {
		if strings.TrimSpace(s) == "" {
			continue
		}
		st, ok := model.ParseStatus(s)
		if !ok {
			return badRequest(c, "unknown status "+strconv.Quote(s))
		}
		statuses = append(statuses, st)
	}
	rs, err := h.Svc.ListReservations(c.Request().Context(), c.Param("barId"), statuses)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": rs})
}

// Get handles GET /v1/bars/:barId/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	r, err := h.Svc.GetReservation(c.Request().Context(), c.Param("barId"), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

type statusReq struct {
	Status string  `json:"status"`
	Reason *string `json:"reason"`
	Reopen bool    `json:"reopen"`
}

// ChangeStatus handles PATCH /v1/bars/:barId/reservations/:id/status.
// Only administrators may reopen a closed reservation.
func (h *ReservationHandler) ChangeStatus(c echo.Context) error {
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	to, ok := model.ParseStatus(req.Status)
	if !ok {
		return badRequest(c, "unknown status")
	}
	if req.Reopen && middleware.Role(c) != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "reopening requires an administrator", "code": "forbidden"})
	}
	res, err := h.Svc.ChangeReservationStatus(c.Request().Context(), service.StatusChange{
		BarID:         c.Param("barId"),
		ReservationID: c.Param("id"),
		To:            to,
		Reason:        req.Reason,
		Reopen:        req.Reopen,
		Actor:         middleware.Actor(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resultResp{Reservation: res.Reservation, Warnings: res.Warnings})
}

// ReassignTable handles PUT /v1/bars/:barId/reservations/:id/table.
func (h *ReservationHandler) ReassignTable(c echo.Context) error {
	var req struct {
		TableID string `json:"table_id"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	res, err := h.Svc.ReassignTable(c.Request().Context(), c.Param("barId"), c.Param("id"), strings.TrimSpace(req.TableID), middleware.Actor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resultResp{Reservation: res.Reservation, Warnings: res.Warnings})
}

// Delete handles DELETE /v1/bars/:barId/reservations/:id.
func (h *ReservationHandler) Delete(c echo.Context) error {
	if err := h.Svc.DeleteReservation(c.Request().Context(), c.Param("barId"), c.Param("id"), middleware.Actor(c)); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// PurgePast handles DELETE /v1/bars/:barId/reservations/past.
func (h *ReservationHandler) PurgePast(c echo.Context) error {
	n, err := h.Svc.PurgePastReservations(c.Request().Context(), c.Param("barId"), middleware.Actor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": n})
}
