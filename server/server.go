// Package server hosts the HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrygo/docpilot/internal/profile"
	apiv1 "github.com/hrygo/docpilot/server/router/api/v1"
	"github.com/hrygo/docpilot/store"
)

// Server wires the echo instance, the API services, and the background
// memory sweeper.
type Server struct {
	echo    *echo.Echo
	profile *profile.Profile
	store   *store.Store
	api     *apiv1.APIV1Service

	sweeperCancel context.CancelFunc
}

// NewServer creates a fully wired Server.
func NewServer(p *profile.Profile, s *store.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("http request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
			)
			return nil
		},
	}))

	api, err := apiv1.NewAPIV1Service(p, s)
	if err != nil {
		return nil, fmt.Errorf("init api service: %w", err)
	}
	api.Register(e.Group("/api/v1"))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return &Server{
		echo:    e,
		profile: p,
		store:   s,
		api:     api,
	}, nil
}

// Start begins serving and launches the memory sweeper. It blocks until the
// listener fails or Shutdown is called.
func (s *Server) Start() error {
	sweepCtx, cancel := context.WithCancel(context.Background())
	s.sweeperCancel = cancel
	go s.api.Memory.RunSweeper(sweepCtx, time.Duration(s.profile.MemorySweepHours)*time.Hour)

	addr := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	slog.Info("server listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the sweeper, drains in-flight requests, and closes the
// store.
func (s *Server) Shutdown(ctx context.Context) {
	if s.sweeperCancel != nil {
		s.sweeperCancel()
	}
	if err := s.echo.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	if err := s.store.Close(); err != nil {
		slog.Error("store close failed", "error", err)
	}
	slog.Info("server stopped")
}
