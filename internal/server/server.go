// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the aggregation layer over HTTP with echo.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/pdiddy/gift-engine/internal/metrics"
	"github.com/pdiddy/gift-engine/pkg/types"
)

// New returns an echo instance with every route registered.
func New(h *Controller, m *metrics.Metrics, log *zap.SugaredLogger) *echo.Echo {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = errorHandler(log)

	e.Use(middleware.RequestID())
	e.Use(requestMetrics(m))
	e.Use(logRequest(log))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Errorw("panic recovered", "error", err, "stack", string(stack))
			return err
		},
	}))

	e.GET("/health", h.Health)
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	api := e.Group("/api")
	api.POST("/ai/analyze", h.Analyze)
	api.POST("/search", h.Search)

	api.POST("/products/search", h.SearchProducts)
	api.GET("/products", h.ListProducts)
	api.GET("/products/:source/:productId", h.GetProduct)
	api.POST("/products/:productId/tags", h.AssignTags)
	api.DELETE("/products/:productId/tags", h.RemoveTags)

	api.GET("/tags", h.ListTags)
	api.POST("/tags", h.CreateTag)
	api.GET("/tags/:tagId", h.GetTag)
	api.PATCH("/tags/:tagId", h.UpdateTag)
	api.DELETE("/tags/:tagId", h.DeleteTag)

	return e
}

// StartServer binds e to the fx lifecycle. A listener failure shuts the
// application down.
func StartServer(lc fx.Lifecycle, sd fx.Shutdowner, cfg *types.Config, e *echo.Echo, log *zap.SugaredLogger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Infow("starting HTTP server", "addr", cfg.Server.Addr)
				if err := e.Start(cfg.Server.Addr); !errors.Is(err, http.ErrServerClosed) {
					log.Errorw("HTTP server stopped", "error", err)
					_ = sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}
