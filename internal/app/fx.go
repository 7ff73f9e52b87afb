// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/gift-engine/internal/analysis"
	"github.com/pdiddy/gift-engine/internal/metrics"
	"github.com/pdiddy/gift-engine/internal/ratelimit"
	"github.com/pdiddy/gift-engine/internal/search"
	"github.com/pdiddy/gift-engine/internal/server"
	"github.com/pdiddy/gift-engine/internal/store"
	"github.com/pdiddy/gift-engine/pkg/types"
)

// Module provides every engine component to an fx graph.
var Module = fx.Options(
	fx.Provide(
		metrics.New,
		newLifecycleStore,
		NewLimiter,
		NewProductCache,
		NewAnalysisCache,
		NewRegistry,
		NewCoordinator,
		NewAnalysis,
		newController,
		server.New,
	),
	fx.Invoke(RunSweepers),
)

// Invoke returns the server application: Module plus the HTTP listener
// and any extra invocations.
func Invoke(cfg *types.Config, log *zap.Logger, funcs ...any) *fx.App {
	return fx.New(
		fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.ZapLogger{Logger: log.Named("fx")}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Supply(cfg, log.Sugar()),
		Module,
		fx.Invoke(server.StartServer),
		fx.Invoke(funcs...),
	)
}

func newLifecycleStore(lc fx.Lifecycle, cfg *types.Config) (*store.Store, error) {
	st, err := NewStore(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return st.Close() },
	})
	return st, nil
}

func newController(co *search.Coordinator, svc *analysis.Service, st *store.Store) *server.Controller {
	return server.NewController(co, svc, st)
}

// RunSweepers starts the cache and rate limiter sweeps on application
// start and stops them on shutdown.
func RunSweepers(lc fx.Lifecycle, cfg *types.Config, limiter *ratelimit.Limiter, products *search.ProductCache, analyses *analysis.AnalysisCache, log *zap.SugaredLogger) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	interval := cfg.Search.SweepInterval

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if interval <= 0 {
				return nil
			}
			log.Debugw("starting sweepers", "interval", interval)
			for _, run := range []func(context.Context, time.Duration){limiter.Run, products.Run, analyses.Run} {
				wg.Add(1)
				go func(run func(context.Context, time.Duration)) {
					defer wg.Done()
					run(ctx, interval)
				}(run)
			}
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			wg.Wait()
			return nil
		},
	})
}
