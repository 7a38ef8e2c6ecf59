package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bar-table-reservation/internal/model"
	"github.com/iliyamo/bar-table-reservation/internal/service"
)

// ConfigHandler reads and writes a bar's reservation settings.
type ConfigHandler struct {
	Svc *service.Service
}

func NewConfigHandler(svc *service.Service) *ConfigHandler {
	if svc == nil {
		panic("nil service passed to NewConfigHandler")
	}
	return &ConfigHandler{Svc: svc}
}

// Get handles GET /v1/bars/:barId/config.  Bars without stored settings
// get the defaults.
func (h *ConfigHandler) Get(c echo.Context) error {
	cfg, err := h.Svc.GetReservationConfig(c.Request().Context(), c.Param("barId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cfg)
}

// Save handles PUT /v1/bars/:barId/config.  The path decides the bar.
func (h *ConfigHandler) Save(c echo.Context) error {
	var cfg model.ReservationConfig
	if err := c.Bind(&cfg); err != nil {
		return badRequest(c, "invalid request body")
	}
	cfg.BarID = c.Param("barId")
	saved, err := h.Svc.SaveReservationConfig(c.Request().Context(), cfg)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, saved)
}
