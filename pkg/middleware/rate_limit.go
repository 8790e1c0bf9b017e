package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/nimbusvault/gateway/pkg/common"
	"github.com/nimbusvault/gateway/pkg/domain"
	"github.com/nimbusvault/gateway/pkg/infra/prometheus"
	"github.com/nimbusvault/gateway/pkg/ratelimit"
	"github.com/nimbusvault/gateway/pkg/routing"
)

type rateLimitMiddleware struct {
	logger   *logrus.Logger
	limiters map[string]*ratelimit.Limiter
}

// NewRateLimitMiddleware builds one limiter per route carrying a policy.
// Routes without a policy pass through untouched. The client key is the
// source address; limiting runs before authentication so unauthenticated
// floods never reach the verifier or a backend. When stop is non-nil a
// janitor goroutine prunes idle windows until it is closed.
func NewRateLimitMiddleware(logger *logrus.Logger, table *routing.Table, opts *ratelimit.Opts, stop <-chan struct{}) Middleware {
	limiters := make(map[string]*ratelimit.Limiter)
	for _, route := range table.Routes() {
		if route.Policy == nil {
			continue
		}
		limiter := ratelimit.NewLimiter(route.Policy.Limit, route.Policy.Window, opts)
		limiters[route.Prefix] = limiter
		if stop != nil {
			go limiter.Janitor(route.Policy.Window, stop)
		}
	}
	return &rateLimitMiddleware{logger: logger, limiters: limiters}
}

func (m *rateLimitMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		route, ok := c.Locals(common.RouteContextKey.String()).(*routing.Route)
		if !ok || route == nil {
			return c.Next()
		}

		limiter, ok := m.limiters[route.Prefix]
		if !ok {
			return c.Next()
		}

		clientKey := c.IP()
		c.Locals(common.ClientKeyContextKey.String(), clientKey)

		decision := limiter.Allow(clientKey)
		if decision.Allowed {
			return c.Next()
		}

		requestID, _ := c.Locals(common.RequestIDContextKey.String()).(string)
		m.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"route":      route.Prefix,
			"client_key": clientKey,
		}).Warn("rate limit exceeded")

		prometheus.RateLimitedTotal.WithLabelValues(route.Prefix).Inc()

		retryAfter := int(decision.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Set(common.RetryAfterHeader, strconv.Itoa(retryAfter))
		return reject(c, domain.ErrRateLimited)
	}
}
