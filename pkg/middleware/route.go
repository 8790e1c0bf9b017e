package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/nimbusvault/gateway/pkg/common"
	"github.com/nimbusvault/gateway/pkg/domain"
	"github.com/nimbusvault/gateway/pkg/routing"
)

type routeMiddleware struct {
	logger *logrus.Logger
	table  *routing.Table
}

// NewRouteMiddleware resolves the inbound path against the routing table
// and stores the match for the stages behind it. Unmatched paths are
// rejected here, before any limiter, verifier, or backend work happens.
func NewRouteMiddleware(logger *logrus.Logger, table *routing.Table) Middleware {
	return &routeMiddleware{logger: logger, table: table}
}

func (m *routeMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		route := m.table.Match(c.Path())
		if route == nil {
			requestID, _ := c.Locals(common.RequestIDContextKey.String()).(string)
			m.logger.WithFields(logrus.Fields{
				"request_id": requestID,
				"path":       c.Path(),
			}).Debug("no route matched")
			return reject(c, domain.ErrRouteNotFound)
		}

		c.Locals(common.RouteContextKey.String(), route)
		return c.Next()
	}
}
