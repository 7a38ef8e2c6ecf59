package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bar-table-reservation/internal/cache"
	"github.com/iliyamo/bar-table-reservation/internal/config"
	"github.com/iliyamo/bar-table-reservation/internal/model"
	"github.com/iliyamo/bar-table-reservation/internal/utils"
)

const secret = "test-secret"

func token(t *testing.T, role, bar string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, "staff-1", role, bar, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func do(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func protected() *echo.Echo {
	e := echo.New()
	g := e.Group("/v1/bars/:barId", JWTAuth(secret), RequireBarAccess())
	g.GET("/reservations", func(c echo.Context) error { return c.String(http.StatusOK, Actor(c)) })
	g.DELETE("/reservations/past", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RequireRole(model.RoleAdmin))
	return e
}

func TestJWTAuthRejectsMissingAndForgedTokens(t *testing.T) {
	e := protected()
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/v1/bars/bar-1/reservations", "").Code)

	forged, err := utils.NewAccessToken("other-secret", "staff-1", model.RoleAdmin, "", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/v1/bars/bar-1/reservations", "Bearer "+forged.Token).Code)
}

func TestStaffIsScopedToOwnBar(t *testing.T) {
	e := protected()
	rec := do(e, http.MethodGet, "/v1/bars/bar-1/reservations", token(t, model.RoleStaff, "bar-1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "staff-1", rec.Body.String())

	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/v1/bars/bar-2/reservations", token(t, model.RoleStaff, "bar-1")).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/v1/bars/bar-2/reservations", token(t, model.RoleAdmin, "")).Code)
}

func TestRequireRole(t *testing.T) {
	e := protected()
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodDelete, "/v1/bars/bar-1/reservations/past", token(t, model.RoleStaff, "bar-1")).Code)
	assert.Equal(t, http.StatusNoContent, do(e, http.MethodDelete, "/v1/bars/bar-1/reservations/past", token(t, model.RoleAdmin, "")).Code)
}

func limitCfg() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: 2 * time.Hour, KeyStrategy: "ip_bar", Prefix: "rl",
	}
}

func limited(mw echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.GET("/v1/bars/:barId/slots", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, mw)
	return e
}

func TestTokenBucketRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	e := limited(NewTokenBucket(limitCfg(), rdb, logrus.New()))

	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/v1/bars/bar-1/slots", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/v1/bars/bar-1/slots", "").Code)
	rec := do(e, http.MethodGet, "/v1/bars/bar-1/slots", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// another bar has its own bucket
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/v1/bars/bar-2/slots", "").Code)
	assert.True(t, mr.Exists("rl:ip:10.0.0.1:bar:bar-1"))
}

func TestTokenBucketLocalFallback(t *testing.T) {
	e := limited(NewTokenBucket(limitCfg(), nil, logrus.New()))
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/v1/bars/bar-1/slots", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/v1/bars/bar-1/slots", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(e, http.MethodGet, "/v1/bars/bar-1/slots", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/v1/bars/bar-2/slots", "").Code)
}

func TestResponseCacheHitAndInvalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := config.CacheConfig{
		Enabled: true, Methods: map[string]bool{http.MethodGet: true}, TTL: time.Minute,
		KeyStrategy: "route_query", Prefix: "cache", MaxBodyBytes: 1 << 16,
	}
	calls := 0
	e := echo.New()
	e.GET("/v1/bars/:barId/tables", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	}, NewResponseCache(cfg, rdb))

	first := do(e, http.MethodGet, "/v1/bars/bar-1/tables", "")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := do(e, http.MethodGet, "/v1/bars/bar-1/tables", "")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	// a different query string is a different entry
	do(e, http.MethodGet, "/v1/bars/bar-1/tables?active=true", "")
	assert.Equal(t, 2, calls)

	rc := cache.NewRedisCache(rdb, "cache", time.Minute, logrus.New())
	require.NoError(t, rc.InvalidateBar(context.Background(), "bar-1"))
	third := do(e, http.MethodGet, "/v1/bars/bar-1/tables", "")
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
	assert.Equal(t, 3, calls)
}

func TestPayloadRoundTripRejectsShortInput(t *testing.T) {
	_, _, _, ok := decodePayload([]byte{1, 2})
	assert.False(t, ok)

	b, err := encodePayload(http.StatusOK, http.Header{"Content-Type": {"application/json"}}, []byte(`{}`))
	require.NoError(t, err)
	status, hdr, body, ok := decodePayload(b)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", hdr.Get("Content-Type"))
	assert.Equal(t, "{}", string(body))
}
