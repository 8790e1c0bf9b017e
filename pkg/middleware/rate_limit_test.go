package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusvault/gateway/pkg/config"
	"github.com/nimbusvault/gateway/pkg/middleware"
	"github.com/nimbusvault/gateway/pkg/ratelimit"
)

func newRateLimitApp(t *testing.T, now *time.Time) *fiber.App {
	t.Helper()
	table := testTable(t, map[string]config.RatePolicy{
		"/api/auth": {Limit: 3, Window: time.Minute},
	})

	opts := &ratelimit.Opts{TimeProvider: func() time.Time { return *now }}

	app := fiber.New()
	app.Use(
		middleware.NewRouteMiddleware(testLogger(), table).Middleware(),
		middleware.NewRateLimitMiddleware(testLogger(), table, opts, nil).Middleware(),
		func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		},
	)
	return app
}

func TestRateLimitMiddleware_FourthRequestRejected(t *testing.T) {
	now := time.Now()
	app := newRateLimitApp(t, &now)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, "request %d within the window", i+1)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate_limited", decodeError(t, resp))
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestRateLimitMiddleware_WindowElapses(t *testing.T) {
	now := time.Now()
	app := newRateLimitApp(t, &now)

	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		_, err := app.Test(req)
		require.NoError(t, err)
	}

	now = now.Add(time.Minute)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRateLimitMiddleware_UnlimitedRoutesPass(t *testing.T) {
	now := time.Now()
	app := newRateLimitApp(t, &now)

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/upload/files", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
}
