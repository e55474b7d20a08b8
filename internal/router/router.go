// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/jellyjess/nail-salon/internal/handler"
	"github.com/jellyjess/nail-salon/internal/logger"
	"github.com/jellyjess/nail-salon/internal/metrics"
)

// Setup installs the middleware every request passes through: panic
// recovery, request IDs, CORS for the website origins, metrics and the
// request log.
func Setup(e *echo.Echo, origins []string, m *metrics.Metrics, log *zap.Logger) {
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()

	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           600,
	})
	e.Pre(echo.WrapMiddleware(c.Handler))

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	if m != nil {
		e.Use(m.Middleware())
	}
	e.Use(logger.RequestLogger(log))
}

// RegisterRoutes registers the operational endpoints: liveness, readiness
// and Prometheus metrics.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, m *metrics.Metrics) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
	if m != nil {
		e.GET("/metrics", m.Handler())
	}
}
