package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bar-table-reservation/internal/model"
	"github.com/iliyamo/bar-table-reservation/internal/service"
)

// TableHandler manages a bar's tables.  Tables are deactivated, never
// deleted.
type TableHandler struct {
	Svc *service.Service
}

func NewTableHandler(svc *service.Service) *TableHandler {
	if svc == nil {
		panic("nil service passed to NewTableHandler")
	}
	return &TableHandler{Svc: svc}
}

type tableReq struct {
	Number     int   `json:"number"`
	Capacity   int   `json:"capacity"`
	IsActive   *bool `json:"is_active"`
	IsOccupied bool  `json:"is_occupied"`
}

func (r tableReq) table(barID, id string) model.Table {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return model.Table{ID: id, BarID: barID, Number: r.Number, Capacity: r.Capacity, IsActive: active, IsOccupied: r.IsOccupied}
}

// List handles GET /v1/bars/:barId/tables?active=true&min_capacity=N.
func (h *TableHandler) List(c echo.Context) error {
	var f model.TableFilter
	if v := c.QueryParam("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "invalid active")
		}
		f.ActiveOnly = b
	}
	minCap, ok := queryInt(c, "min_capacity")
	if !ok || minCap < 0 {
		return badRequest(c, "invalid min_capacity")
	}
	f.MinCapacity = minCap
	ts, err := h.Svc.ListTables(c.Request().Context(), c.Param("barId"), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tables": ts})
}

// Create handles POST /v1/bars/:barId/tables.
func (h *TableHandler) Create(c echo.Context) error {
	var req tableReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	t, err := h.Svc.SaveTable(c.Request().Context(), req.table(c.Param("barId"), ""))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// Update handles PUT /v1/bars/:barId/tables/:tableId.
func (h *TableHandler) Update(c echo.Context) error {
	var req tableReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	t, err := h.Svc.SaveTable(c.Request().Context(), req.table(c.Param("barId"), c.Param("tableId")))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// SetOccupied handles PUT /v1/bars/:barId/tables/:tableId/occupied.
func (h *TableHandler) SetOccupied(c echo.Context) error {
	var req struct {
		Occupied *bool `json:"occupied"`
	}
	if err := c.Bind(&req); err != nil || req.Occupied == nil {
		return badRequest(c, "occupied is required")
	}
	t, err := h.Svc.SetTableOccupied(c.Request().Context(), c.Param("barId"), c.Param("tableId"), *req.Occupied)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}
