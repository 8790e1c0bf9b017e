package http

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"github.com/nimbusvault/gateway/pkg/common"
	"github.com/nimbusvault/gateway/pkg/config"
	"github.com/nimbusvault/gateway/pkg/domain"
	"github.com/nimbusvault/gateway/pkg/health"
	"github.com/nimbusvault/gateway/pkg/infra/httpx"
	"github.com/nimbusvault/gateway/pkg/routing"
)

// hopHeaders identify the edge hop and must not cross it in either
// direction (RFC 9110 §7.6.1).
var hopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Proxy-Connection":    {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

type forwardedHandler struct {
	logger   *logrus.Logger
	clients  *httpx.ClientPool
	prober   *health.Prober
	breakers *httpx.BreakerGroup
	cfg      *config.ProxyConfig
}

type ForwardedHandlerDeps struct {
	Logger   *logrus.Logger
	Clients  *httpx.ClientPool
	Prober   *health.Prober
	Breakers *httpx.BreakerGroup
	Cfg      *config.ProxyConfig
}

// NewForwardedHandler builds the dispatch stage: it takes the route
// resolved by the middleware chain, rewrites the path, and forwards the
// request to the route's backend in a single attempt.
func NewForwardedHandler(deps ForwardedHandlerDeps) Handler {
	return &forwardedHandler{
		logger:   deps.Logger,
		clients:  deps.Clients,
		prober:   deps.Prober,
		breakers: deps.Breakers,
		cfg:      deps.Cfg,
	}
}

func (h *forwardedHandler) Handle(c *fiber.Ctx) error {
	route, ok := c.Locals(common.RouteContextKey.String()).(*routing.Route)
	if !ok || route == nil {
		return errorResponse(c, domain.ErrRouteNotFound)
	}

	if len(c.Body()) > h.cfg.MaxBodyBytes {
		return errorResponse(c, domain.ErrPayloadTooLarge)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	h.buildBackendRequest(c, route, req)

	err := h.send(route, req, resp)
	if err != nil {
		gerr := h.classifyForwardError(err)
		h.prober.ReportFailure(route.Backend.Name, err)

		requestID, _ := c.Locals(common.RequestIDContextKey.String()).(string)
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"backend":    route.Backend.Name,
			"kind":       gerr.Code,
			"error":      err.Error(),
		}).Error("forwarding failed")

		return errorResponse(c, gerr)
	}

	// Any response, including a backend 5xx, means the backend is
	// reachable; application-level statuses pass through unchanged.
	h.prober.ReportSuccess(route.Backend.Name)

	return h.writeBackendResponse(c, resp)
}

func (h *forwardedHandler) buildBackendRequest(c *fiber.Ctx, route *routing.Route, req *fasthttp.Request) {
	rest := route.StripPrefix(c.Path())
	uri := route.Backend.Address + rest
	if query := c.Context().QueryArgs().String(); query != "" {
		uri += "?" + query
	}

	req.SetRequestURI(uri)
	req.Header.SetMethod(c.Method())

	c.Request().Header.VisitAll(func(key, value []byte) {
		name := string(key)
		if _, hop := hopHeaders[name]; hop {
			return
		}
		if name == fiber.HeaderHost {
			return
		}
		req.Header.AddBytesKV(key, value)
	})

	req.Header.SetHost(route.Backend.Host())
	req.Header.Set(common.ForwardedHostHeader, c.Hostname())
	req.Header.Add(common.ForwardedForHeader, c.IP())
	if requestID, ok := c.Locals(common.RequestIDContextKey.String()).(string); ok {
		req.Header.Set(common.RequestIDHeader, requestID)
	}

	if body := c.Body(); len(body) > 0 {
		req.SetBodyRaw(body)
	}
}

func (h *forwardedHandler) send(route *routing.Route, req *fasthttp.Request, resp *fasthttp.Response) error {
	client := h.clients.ForBackend(route.Backend.Name)
	do := func() error {
		return client.DoTimeout(req, resp, h.clients.Timeout())
	}

	if h.breakers == nil {
		return do()
	}
	return h.breakers.ForBackend(route.Backend.Name).Execute(do)
}

func (h *forwardedHandler) classifyForwardError(err error) *domain.GatewayError {
	switch {
	case httpx.IsOpen(err):
		return domain.ErrBackendUnreachable.WithCause(fmt.Errorf("circuit open: %w", err))
	case errors.Is(err, fasthttp.ErrDialTimeout):
		return domain.ErrBackendUnreachable.WithCause(err)
	case errors.Is(err, fasthttp.ErrTimeout):
		return domain.ErrBackendTimeout.WithCause(err)
	case errors.Is(err, fasthttp.ErrBodyTooLarge):
		return domain.ErrPayloadTooLarge.WithCause(err)
	default:
		return domain.ErrBackendUnreachable.WithCause(err)
	}
}

func (h *forwardedHandler) writeBackendResponse(c *fiber.Ctx, resp *fasthttp.Response) error {
	c.Status(resp.StatusCode())

	resp.Header.VisitAll(func(key, value []byte) {
		name := string(key)
		if _, hop := hopHeaders[name]; hop {
			return
		}
		if name == fiber.HeaderContentLength {
			return
		}
		c.Response().Header.AddBytesKV(key, value)
	})

	// resp is released when Handle returns; the body must outlive it.
	body := append([]byte(nil), resp.Body()...)
	return c.Send(body)
}
