// Copyright (c) 2026 John Dewey

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER
// DEALINGS IN THE SOFTWARE.

// Package api provides the read-only audit status API.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/leaseaudit-io/leaseaudit/internal/config"
	"github.com/leaseaudit-io/leaseaudit/internal/store"
)

// Server wraps the Echo server serving audit records and metrics.
type Server struct {
	Echo *echo.Echo

	logger    *slog.Logger
	appConfig config.Config
	store     store.Store
	tokens    TokenValidator
	gatherer  prometheus.Gatherer
}

// New initialize a new Server and configure an Echo server.
func New(
	appConfig config.Config,
	logger *slog.Logger,
	st store.Store,
	tokens TokenValidator,
	gatherer prometheus.Gatherer,
) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(otelecho.Middleware("leaseaudit-api"))
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{
		Echo:      e,
		logger:    logger,
		appConfig: appConfig,
		store:     st,
		tokens:    tokens,
		gatherer:  gatherer,
	}

	s.registerRoutes()

	return s
}

// registerRoutes wires the API surface. Health and metrics are
// unauthenticated; audit record routes require a bearer token.
func (s *Server) registerRoutes() {
	s.Echo.GET("/healthz", s.getHealth)
	s.Echo.GET(
		"/metrics",
		echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})),
	)

	v1 := s.Echo.Group(
		"/api/v1",
		bearerAuth(s.tokens, s.appConfig.API.SigningKey),
	)
	v1.GET("/audits", s.getAudits)
	v1.GET("/audits/:id", s.getAudit)
}

// Start starts the Echo server with the configured port.
func (s *Server) Start() {
	go func() {
		s.logger.Info("starting server")
		listenAddr := fmt.Sprintf(":%d", s.appConfig.API.Port)
		if err := s.Echo.Start(listenAddr); err != nil && err != http.ErrServerClosed {
			s.logger.Error(
				"failed to start server",
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Stop gracefully shuts down the Echo server.
func (s *Server) Stop(
	ctx context.Context,
) {
	s.logger.Info("stopping server")

	if err := s.Echo.Shutdown(ctx); err != nil {
		s.logger.Error(
			"server shutdown failed",
			slog.String("error", err.Error()),
		)
	} else {
		s.logger.Info("server stopped gracefully")
	}
}
