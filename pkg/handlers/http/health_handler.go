package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nimbusvault/gateway/pkg/health"
)

const (
	statusOK       = "ok"
	statusDegraded = "degraded"
)

type serviceHealth struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	LastError string `json:"last_error,omitempty"`
}

type healthResponse struct {
	Status   string                   `json:"status"`
	Services map[string]serviceHealth `json:"services"`
}

type healthHandler struct {
	prober *health.Prober
}

// NewHealthHandler serves the aggregate health endpoint as an O(1) read
// of the prober's cached statuses; incoming health checks never trigger
// backend probes themselves.
func NewHealthHandler(prober *health.Prober) Handler {
	return &healthHandler{prober: prober}
}

func (h *healthHandler) Handle(c *fiber.Ctx) error {
	snapshot := h.prober.Snapshot()

	out := healthResponse{
		Status:   statusOK,
		Services: make(map[string]serviceHealth, len(snapshot)),
	}

	for _, s := range snapshot {
		entry := serviceHealth{Status: statusOK, LatencyMs: s.LatencyMs}
		if !s.Healthy {
			entry.Status = statusDegraded
			entry.LastError = s.LastError
			out.Status = statusDegraded
		}
		out.Services[s.Name] = entry
	}

	code := fiber.StatusOK
	if out.Status != statusOK {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(out)
}

type livenessHandler struct{}

// NewLivenessHandler answers "is this process running" and nothing else.
func NewLivenessHandler() Handler {
	return &livenessHandler{}
}

func (h *livenessHandler) Handle(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": statusOK})
}
