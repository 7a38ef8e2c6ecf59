package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bar-table-reservation/internal/model"
)

// RequireRole aborts with 403 unless the caller holds one of roles.
// It expects JWTAuth to have run first.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[Role(c)] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "code": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireBarAccess keeps STAFF tokens inside their own bar.  ADMIN may
// act on any bar.
func RequireBarAccess() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch Role(c) {
			case model.RoleAdmin:
				return next(c)
			case model.RoleStaff:
				if bar := TokenBarID(c); bar != "" && bar == c.Param("barId") {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "code": "forbidden"})
		}
	}
}
