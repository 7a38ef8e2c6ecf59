package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bar-table-reservation/internal/handler"
	"github.com/iliyamo/bar-table-reservation/internal/middleware"
	"github.com/iliyamo/bar-table-reservation/internal/model"
)

// RegisterStaff registers bar management endpoints.  Every route needs
// a valid token for the bar in the path; destructive and configuration
// routes additionally need ADMIN.
func RegisterStaff(e *echo.Echo, r *handler.ReservationHandler, t *handler.TableHandler, cfg *handler.ConfigHandler, jwtSecret string) {
	g := e.Group(
		"/v1/bars/:barId",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStaff, model.RoleAdmin),
		middleware.RequireBarAccess(),
	)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	g.GET("/reservations", r.List)
	g.GET("/reservations/:id", r.Get)
	g.PATCH("/reservations/:id/status", r.ChangeStatus)
	g.PUT("/reservations/:id/table", r.ReassignTable)
	g.DELETE("/reservations/past", r.PurgePast, adminOnly)
	g.DELETE("/reservations/:id", r.Delete, adminOnly)

	g.POST("/tables", t.Create)
	g.PUT("/tables/:tableId", t.Update)
	g.PUT("/tables/:tableId/occupied", t.SetOccupied)

	g.PUT("/config", cfg.Save, adminOnly)
}
