// Package router registers the HTTP surface on an echo instance.
package router

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bar-table-reservation/internal/handler"
	"github.com/iliyamo/bar-table-reservation/internal/middleware"
	"github.com/iliyamo/bar-table-reservation/internal/model"
)

// RegisterRoutes registers unauthenticated infrastructure routes.
func RegisterRoutes(e *echo.Echo, ping func(ctx context.Context) error) {
	e.GET("/healthz", handler.Health(ping))
}

// RegisterAuth registers staff login and admin account creation.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	e.POST("/v1/auth/login", a.Login)

	admin := e.Group("/v1/admin", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))
	admin.POST("/staff", a.CreateStaff)
}
