package server

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nimbusvault/gateway/pkg/config"
	handlers "github.com/nimbusvault/gateway/pkg/handlers/http"
	"github.com/nimbusvault/gateway/pkg/middleware"
)

const (
	HealthPath     = "/health"
	HealthLivePath = "/health/live"
)

type (
	ProxyServerDI struct {
		Config              *config.Config
		Logger              *logrus.Logger
		MiddlewareTransport middleware.Transport
		HandlerTransport    handlers.HandlerTransport
	}
	ProxyServer struct {
		*BaseServer
		middlewareTransport middleware.Transport
		handlerTransport    handlers.HandlerTransport
	}
)

func NewProxyServer(di ProxyServerDI) *ProxyServer {
	s := &ProxyServer{
		BaseServer:          NewBaseServer(di.Config, di.Logger),
		middlewareTransport: di.MiddlewareTransport,
		handlerTransport:    di.HandlerTransport,
	}

	s.BaseServer.setupMetricsEndpoint()
	return s
}

func (s *ProxyServer) Run() error {
	// Local endpoints answer before the proxy chain runs; they are never
	// forwarded.
	s.Router.Get(HealthLivePath, s.handlerTransport.LivenessHandler.Handle)
	s.Router.Get(HealthPath, s.handlerTransport.HealthHandler.Handle)

	// Fixed stage order: recovery wraps everything, then request ID and
	// access log, CORS, metrics, route resolution, rate limit, auth, and
	// finally dispatch to the matched backend.
	s.Router.Use(
		s.middlewareTransport.RecoveryMiddleware.Middleware(),
		s.middlewareTransport.RequestIDMiddleware.Middleware(),
		s.middlewareTransport.CORSMiddleware.Middleware(),
		s.middlewareTransport.MetricsMiddleware.Middleware(),
		s.middlewareTransport.RouteMiddleware.Middleware(),
		s.middlewareTransport.RateLimitMiddleware.Middleware(),
		s.middlewareTransport.AuthMiddleware.Middleware(),
		s.handlerTransport.ForwardedHandler.Handle,
	)

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)
	s.Logger.WithField("addr", addr).Info("starting gateway server")
	return s.Router.Listen(addr)
}

func (s *ProxyServer) Shutdown() error {
	return s.Router.Shutdown()
}
