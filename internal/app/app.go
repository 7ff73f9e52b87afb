// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package app wires the engine's components from configuration. Build
// returns them directly for one-shot CLI commands; Invoke assembles the
// same constructors into an fx application for the server.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/gift-engine/internal/analysis"
	"github.com/pdiddy/gift-engine/internal/cache"
	"github.com/pdiddy/gift-engine/internal/metrics"
	"github.com/pdiddy/gift-engine/internal/normalize"
	"github.com/pdiddy/gift-engine/internal/ratelimit"
	"github.com/pdiddy/gift-engine/internal/retry"
	"github.com/pdiddy/gift-engine/internal/search"
	"github.com/pdiddy/gift-engine/internal/store"
	"github.com/pdiddy/gift-engine/pkg/types"
)

// Components holds a fully wired engine.
type Components struct {
	Config      *types.Config
	Store       *store.Store
	Limiter     *ratelimit.Limiter
	Products    *search.ProductCache
	Analyses    *analysis.AnalysisCache
	Registry    *search.Registry
	Coordinator *search.Coordinator
	Analysis    *analysis.Service
	Metrics     *metrics.Metrics
}

// Close releases the store.
func (c *Components) Close() error {
	return c.Store.Close()
}

// Build constructs every component for cfg.
func Build(ctx context.Context, cfg *types.Config, log *zap.SugaredLogger) (*Components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	st, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	reg, err := NewRegistry(cfg, log)
	if err != nil {
		st.Close()
		return nil, err
	}

	m := metrics.New()
	limiter := NewLimiter(cfg, log)
	products := NewProductCache(log)
	analyses := NewAnalysisCache(log)
	return &Components{
		Config:      cfg,
		Store:       st,
		Limiter:     limiter,
		Products:    products,
		Analyses:    analyses,
		Registry:    reg,
		Coordinator: NewCoordinator(cfg, reg, limiter, products, st, m, log),
		Analysis:    NewAnalysis(cfg, analyses, limiter, st, m, log),
		Metrics:     m,
	}, nil
}

// NewStore opens the database and seeds the system category tags.
func NewStore(ctx context.Context, cfg *types.Config) (*store.Store, error) {
	st, err := store.NewStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if err := st.EnsureSystemTags(ctx, normalize.Categories()); err != nil {
		st.Close()
		return nil, fmt.Errorf("seeding tags: %w", err)
	}
	return st, nil
}

// NewLimiter returns the shared limiter for cfg.RateLimits.
func NewLimiter(cfg *types.Config, log *zap.SugaredLogger) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimits, ratelimit.WithLogger(log))
}

// NewProductCache returns the per-source result cache.
func NewProductCache(log *zap.SugaredLogger) *search.ProductCache {
	return cache.New[[]types.StandardizedProduct](cache.WithName("products"), cache.WithLogger(log))
}

// NewAnalysisCache returns the recipient analysis cache.
func NewAnalysisCache(log *zap.SugaredLogger) *analysis.AnalysisCache {
	return cache.New[types.RecipientAnalysis](cache.WithName("analysis"), cache.WithLogger(log))
}

// NewRegistry registers the amazon, rapidapi and catalog sources.
// Sources without credentials are registered unconfigured.
func NewRegistry(cfg *types.Config, log *zap.SugaredLogger) (*search.Registry, error) {
	catalog, err := search.NewCatalogAdapter(cfg.Sources.Catalog, log)
	if err != nil {
		return nil, err
	}
	reg := search.NewRegistry()
	reg.Register(search.SourceAmazon, search.NewAmazonAdapter(cfg.Sources.Amazon, cfg.HTTP, log))
	reg.Register(search.SourceRapidAPI, search.NewRapidAPIAdapter(cfg.Sources.RapidAPI, cfg.HTTP, log))
	reg.Register(search.SourceCatalog, catalog)
	return reg, nil
}

// NewCoordinator applies cfg.Search to a coordinator over reg.
func NewCoordinator(cfg *types.Config, reg *search.Registry, limiter *ratelimit.Limiter, products *search.ProductCache, st *store.Store, m *metrics.Metrics, log *zap.SugaredLogger) *search.Coordinator {
	s := cfg.Search
	return search.NewCoordinator(reg, limiter, products, st,
		search.WithRetryPolicy(retry.Policy{MaxRetries: s.MaxRetries, BaseDelay: s.RetryBaseDelay}),
		search.WithCacheTTL(s.CacheTTL),
		search.WithMaxQueriesPerSource(s.MaxQueriesPerSource),
		search.WithTimeout(s.Timeout),
		search.WithLogger(log),
		search.WithMetrics(m),
	)
}

// NewAnalysis builds the analysis service for cfg.Analysis.
func NewAnalysis(cfg *types.Config, analyses *analysis.AnalysisCache, limiter *ratelimit.Limiter, st *store.Store, m *metrics.Metrics, log *zap.SugaredLogger) *analysis.Service {
	return analysis.NewFromConfig(context.Background(), *cfg, analyses, limiter, st, log, m)
}
