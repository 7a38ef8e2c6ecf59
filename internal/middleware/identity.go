package middleware

import "github.com/labstack/echo/v4"

// Actor identifies the caller for audit logs: the token subject, or
// "guest" on public routes.
func Actor(c echo.Context) string {
	if s, ok := c.Get(CtxUserID).(string); ok && s != "" {
		return s
	}
	return "guest"
}

// Role returns the caller's role claim, empty when unauthenticated.
func Role(c echo.Context) string {
	s, _ := c.Get(CtxRole).(string)
	return s
}

// TokenBarID returns the bar the caller's token is scoped to.
func TokenBarID(c echo.Context) string {
	s, _ := c.Get(CtxBarID).(string)
	return s
}
