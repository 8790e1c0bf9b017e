package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nimbusvault/gateway/pkg/common"
	"github.com/nimbusvault/gateway/pkg/infra/prometheus"
	"github.com/nimbusvault/gateway/pkg/routing"
)

type metricsMiddleware struct{}

// NewMetricsMiddleware records one counter increment and one latency
// sample per request. Both are constant-time in-memory updates; exposition
// happens only when /metrics is scraped.
func NewMetricsMiddleware() Middleware {
	return &metricsMiddleware{}
}

func (m *metricsMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		c.Locals(common.LatencyContextKey.String(), start)

		err := c.Next()

		routeLabel := "unmatched"
		if route, ok := c.Locals(common.RouteContextKey.String()).(*routing.Route); ok && route != nil {
			routeLabel = route.Prefix
		}

		status := strconv.Itoa(c.Response().StatusCode())
		prometheus.RequestTotal.WithLabelValues(c.Method(), routeLabel, status).Inc()
		prometheus.RequestLatency.WithLabelValues(routeLabel).Observe(float64(time.Since(start).Milliseconds()))

		return err
	}
}
