package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nimbusvault/gateway/pkg/domain"
)

type Middleware interface {
	Middleware() fiber.Handler
}

// Transport carries the middleware chain in its fixed application order:
// recovery wraps everything, then request ID, CORS, metrics, route
// resolution, rate limiting, and authentication ahead of dispatch.
type Transport struct {
	RecoveryMiddleware  Middleware
	RequestIDMiddleware Middleware
	CORSMiddleware      Middleware
	MetricsMiddleware   Middleware
	RouteMiddleware     Middleware
	RateLimitMiddleware Middleware
	AuthMiddleware      Middleware
}

func reject(c *fiber.Ctx, gerr *domain.GatewayError) error {
	return c.Status(gerr.Status).JSON(fiber.Map{
		"error":   gerr.Code,
		"message": gerr.Message,
	})
}
