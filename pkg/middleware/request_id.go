package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nimbusvault/gateway/pkg/common"
	"github.com/nimbusvault/gateway/pkg/routing"
)

type requestIDMiddleware struct {
	logger *logrus.Logger
}

// NewRequestIDMiddleware assigns every request an ID (honoring an inbound
// X-Request-ID), echoes it on the response, and writes the access log line
// once the request completes.
func NewRequestIDMiddleware(logger *logrus.Logger) Middleware {
	return &requestIDMiddleware{logger: logger}
}

func (m *requestIDMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(common.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Locals(common.RequestIDContextKey.String(), requestID)
		c.Set(common.RequestIDHeader, requestID)

		start := time.Now()
		err := c.Next()

		fields := logrus.Fields{
			"request_id": requestID,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     c.Response().StatusCode(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.IP(),
		}
		if route, ok := c.Locals(common.RouteContextKey.String()).(*routing.Route); ok && route != nil {
			fields["route"] = route.Prefix
			fields["backend"] = route.Backend.Name
		}
		m.logger.WithFields(fields).Info("request completed")

		return err
	}
}
