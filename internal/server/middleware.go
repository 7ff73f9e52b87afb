// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/pdiddy/gift-engine/internal/metrics"
)

// skipped reports routes excluded from request logging and metrics.
func skipped(c echo.Context) bool {
	p := c.Path()
	return p == "/health" || p == "/metrics"
}

// requestMetrics counts requests by method, route template and status.
func requestMetrics(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if skipped(c) {
				return err
			}
			status := c.Response().Status
			if err != nil {
				status, _ = statusFor(err)
			}
			m.IncHTTP(c.Request().Method, c.Path(), status)
			return err
		}
	}
}

// logRequest writes one line per request.
func logRequest(log *zap.SugaredLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if skipped(c) {
				return err
			}
			status := c.Response().Status
			if err != nil {
				status, _ = statusFor(err)
			}
			log.Infow("request",
				"method", c.Request().Method,
				"route", c.Path(),
				"status", status,
				"elapsed", time.Since(start),
			)
			return err
		}
	}
}
