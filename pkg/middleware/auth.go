package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/nimbusvault/gateway/pkg/common"
	"github.com/nimbusvault/gateway/pkg/domain"
	"github.com/nimbusvault/gateway/pkg/infra/jwt"
	"github.com/nimbusvault/gateway/pkg/routing"
)

const bearerPrefix = "bearer "

type authMiddleware struct {
	logger     *logrus.Logger
	verifier   jwt.Verifier
	cookieName string
}

// NewAuthMiddleware gates routes whose RequireAuth flag is set. The token
// comes from the Authorization header, falling back to the configured
// cookie. Failure kinds are logged with the request ID; callers only ever
// see the generic unauthorized response.
func NewAuthMiddleware(logger *logrus.Logger, verifier jwt.Verifier, cookieName string) Middleware {
	return &authMiddleware{
		logger:     logger,
		verifier:   verifier,
		cookieName: cookieName,
	}
}

func (m *authMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		route, ok := c.Locals(common.RouteContextKey.String()).(*routing.Route)
		if !ok || route == nil || !route.RequireAuth {
			return c.Next()
		}

		principal, err := m.verifier.Verify(m.extractToken(c))
		if err != nil {
			gerr := credentialError(err)
			requestID, _ := c.Locals(common.RequestIDContextKey.String()).(string)
			m.logger.WithFields(logrus.Fields{
				"request_id": requestID,
				"route":      route.Prefix,
				"kind":       gerr.Code,
			}).Warn("credential rejected")
			return reject(c, gerr)
		}

		c.Locals(common.PrincipalContextKey.String(), principal)
		return c.Next()
	}
}

func (m *authMiddleware) extractToken(c *fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	if auth != "" && strings.HasPrefix(strings.ToLower(auth), bearerPrefix) {
		return strings.TrimSpace(auth[len(bearerPrefix):])
	}
	if m.cookieName != "" {
		return c.Cookies(m.cookieName)
	}
	return ""
}

func credentialError(err error) *domain.GatewayError {
	switch {
	case errors.Is(err, jwt.ErrMissingToken):
		return domain.ErrMissingCredential.WithCause(err)
	case errors.Is(err, jwt.ErrExpiredToken):
		return domain.ErrExpiredCredential.WithCause(err)
	default:
		return domain.ErrInvalidCredential.WithCause(err)
	}
}
