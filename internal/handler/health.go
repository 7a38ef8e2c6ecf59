package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Health reports whether the primary store answers a ping.  A failing
// probe yields 503 "degraded" so load balancers can tell the instance
// is running on its fallback.
func Health(ping func(ctx context.Context) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		if ping == nil {
			return c.String(http.StatusOK, "ok")
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), time.Second)
		defer cancel()
		if err := ping(ctx); err != nil {
			return c.String(http.StatusServiceUnavailable, "degraded")
		}
		return c.String(http.StatusOK, "ok")
	}
}
