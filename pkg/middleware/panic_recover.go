package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/nimbusvault/gateway/pkg/common"
	"github.com/nimbusvault/gateway/pkg/domain"
)

type panicRecoverMiddleware struct {
	logger *logrus.Logger
}

// NewPanicRecoverMiddleware isolates per-request faults at the server
// boundary: a panicking handler produces an internal_error response and a
// correlated log line, never a dead process.
func NewPanicRecoverMiddleware(logger *logrus.Logger) Middleware {
	return &panicRecoverMiddleware{logger: logger}
}

func (m *panicRecoverMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				requestID, _ := c.Locals(common.RequestIDContextKey.String()).(string)
				m.logger.WithFields(logrus.Fields{
					"error":      r,
					"path":       c.Path(),
					"request_id": requestID,
				}).Error("HTTP server panic recovered")

				_ = reject(c, domain.ErrInternalError)
			}
		}()

		return c.Next()
	}
}
