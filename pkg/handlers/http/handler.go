package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nimbusvault/gateway/pkg/domain"
)

type Handler interface {
	Handle(c *fiber.Ctx) error
}

// HandlerTransport groups the handlers the server wires up.
type HandlerTransport struct {
	ForwardedHandler Handler
	HealthHandler    Handler
	LivenessHandler  Handler
}

func errorResponse(c *fiber.Ctx, gerr *domain.GatewayError) error {
	return c.Status(gerr.Status).JSON(fiber.Map{
		"error":   gerr.Code,
		"message": gerr.Message,
	})
}
