package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nimbusvault/gateway/pkg/config"
	handlers "github.com/nimbusvault/gateway/pkg/handlers/http"
	"github.com/nimbusvault/gateway/pkg/health"
	"github.com/nimbusvault/gateway/pkg/infra/httpx"
	"github.com/nimbusvault/gateway/pkg/infra/jwt"
	infraLogger "github.com/nimbusvault/gateway/pkg/infra/logger"
	"github.com/nimbusvault/gateway/pkg/infra/prometheus"
	"github.com/nimbusvault/gateway/pkg/middleware"
	"github.com/nimbusvault/gateway/pkg/registry"
	"github.com/nimbusvault/gateway/pkg/routing"
	"github.com/nimbusvault/gateway/pkg/server"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	logger := infraLogger.NewLogger(os.Getenv("LOG_DIR"))

	if err := config.Load("./config"); err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	cfg := config.GetConfig()

	prometheus.Initialize()

	reg, err := registry.NewRegistry(cfg)
	if err != nil {
		logger.Fatalf("failed to build backend registry: %v", err)
	}

	table, err := routing.NewTable(cfg, reg)
	if err != nil {
		logger.Fatalf("failed to build routing table: %v", err)
	}

	prober := health.NewProber(logger, reg, health.ProberOpts{
		Interval:         cfg.Health.Interval,
		Timeout:          cfg.Health.Timeout,
		FailureThreshold: cfg.Health.FailureThreshold,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go prober.Run(ctx)

	clients := httpx.NewClientPool(
		cfg.Proxy.RequestTimeout,
		cfg.Proxy.MaxConnsPerHost,
		cfg.Proxy.MaxBodyBytes,
	)

	var breakers *httpx.BreakerGroup
	if cfg.Proxy.CircuitBreaker.Enabled {
		breakers = httpx.NewBreakerGroup(
			cfg.Proxy.CircuitBreaker.OpenDuration,
			cfg.Proxy.CircuitBreaker.MaxFailures,
		)
	}

	verifier := jwt.NewVerifier(cfg.Auth.SecretKey)

	stop := make(chan struct{})
	defer close(stop)

	middlewareTransport := middleware.Transport{
		RecoveryMiddleware:  middleware.NewPanicRecoverMiddleware(logger),
		RequestIDMiddleware: middleware.NewRequestIDMiddleware(logger),
		CORSMiddleware:      middleware.NewCORSMiddleware(cfg.CORS),
		MetricsMiddleware:   middleware.NewMetricsMiddleware(),
		RouteMiddleware:     middleware.NewRouteMiddleware(logger, table),
		RateLimitMiddleware: middleware.NewRateLimitMiddleware(logger, table, nil, stop),
		AuthMiddleware:      middleware.NewAuthMiddleware(logger, verifier, cfg.Auth.CookieName),
	}

	handlerTransport := handlers.HandlerTransport{
		ForwardedHandler: handlers.NewForwardedHandler(handlers.ForwardedHandlerDeps{
			Logger:   logger,
			Clients:  clients,
			Prober:   prober,
			Breakers: breakers,
			Cfg:      &cfg.Proxy,
		}),
		HealthHandler:   handlers.NewHealthHandler(prober),
		LivenessHandler: handlers.NewLivenessHandler(),
	}

	srv := server.NewProxyServer(server.ProxyServerDI{
		Config:              cfg,
		Logger:              logger,
		MiddlewareTransport: middlewareTransport,
		HandlerTransport:    handlerTransport,
	})

	go func() {
		if err := srv.Run(); err != nil {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	fmt.Println("shutting down server...")
	cancel()
	if err := srv.Shutdown(); err != nil {
		fmt.Println("error shutting down server:", err)
		os.Exit(1)
	}
	fmt.Println("server gracefully stopped")
}
