package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bar-table-reservation/internal/handler"
)

// Public bundles the handlers and middleware of guest facing routes.
type Public struct {
	Reservations *handler.ReservationHandler
	Tables       *handler.TableHandler
	Configs      *handler.ConfigHandler
	RateLimit    echo.MiddlewareFunc
	Cache        echo.MiddlewareFunc
}

// RegisterPublic registers the booking endpoints guests use.  All of
// them are rate limited; only the table listing is cached because slot
// and availability answers must reflect the latest bookings.
func RegisterPublic(e *echo.Echo, p Public) {
	g := e.Group("/v1/bars/:barId")
	if p.RateLimit != nil {
		g.Use(p.RateLimit)
	}
	g.GET("/slots", p.Reservations.Slots)
	g.GET("/availability", p.Reservations.Availability)
	g.POST("/reservations", p.Reservations.Create)
	g.GET("/config", p.Configs.Get)

	if p.Cache != nil {
		g.GET("/tables", p.Tables.List, p.Cache)
	} else {
		g.GET("/tables", p.Tables.List)
	}
}
