package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusvault/gateway/pkg/common"
	"github.com/nimbusvault/gateway/pkg/middleware"
	"github.com/nimbusvault/gateway/pkg/routing"
)

func TestRouteMiddleware_UnmatchedPath(t *testing.T) {
	table := testTable(t, nil)

	app := fiber.New()
	app.Use(middleware.NewRouteMiddleware(testLogger(), table).Middleware())
	app.Use(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "route_not_found", decodeError(t, resp))
}

func TestRouteMiddleware_StoresMatch(t *testing.T) {
	table := testTable(t, nil)

	var matched *routing.Route
	app := fiber.New()
	app.Use(middleware.NewRouteMiddleware(testLogger(), table).Middleware())
	app.Use(func(c *fiber.Ctx) error {
		matched, _ = c.Locals(common.RouteContextKey.String()).(*routing.Route)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/upload/files", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotNil(t, matched)
	assert.Equal(t, "upload", matched.Backend.Name)
}
