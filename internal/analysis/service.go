// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/gift-engine/internal/cache"
	"github.com/pdiddy/gift-engine/internal/metrics"
	"github.com/pdiddy/gift-engine/pkg/types"
)

const cachePrefix = "ai-analysis"

// DefaultCacheTTL is how long an analysis stays cached.
const DefaultCacheTTL = 24 * time.Hour

// Limiter admits provider calls. *ratelimit.Limiter implements it.
type Limiter interface {
	Allow(service, identifier string) bool
}

// AnalysisCache holds analyses by profile key.
type AnalysisCache = cache.Cache[types.RecipientAnalysis]

// Service analyzes profiles with a primary provider and falls back to the
// keyword heuristic.
type Service struct {
	primary  Analyzer
	provider string
	fallback Analyzer
	cache    *AnalysisCache
	limiter  Limiter
	ttl      time.Duration
	log      *zap.SugaredLogger
	metrics  *metrics.Metrics
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(log *zap.SugaredLogger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithCacheTTL sets the analysis lifetime. Non-positive values keep the
// default.
func WithCacheTTL(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithMetrics records cache and rate limit outcomes.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// NewService returns a Service. primary may be nil, in which case every
// profile goes to the heuristic. provider names the primary for the
// limiter and logs.
func NewService(primary Analyzer, provider string, c *AnalysisCache, limiter Limiter, opts ...ServiceOption) *Service {
	if c == nil {
		c = cache.New[types.RecipientAnalysis](cache.WithName("analysis"))
	}
	s := &Service{
		primary:  primary,
		provider: provider,
		fallback: HeuristicAnalyzer{},
		cache:    c,
		limiter:  limiter,
		ttl:      DefaultCacheTTL,
		log:      zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Provider names the primary analyzer, or heuristic when there is none.
func (s *Service) Provider() string {
	if !s.primaryReady() {
		return types.ProviderHeuristic
	}
	return s.provider
}

// Analyze returns the analysis for profile. It consults the cache, then
// the primary provider, and falls back to the heuristic when the provider
// is unconfigured, rate limited or fails. It never returns an error.
func (s *Service) Analyze(ctx context.Context, profile types.RecipientProfile) types.RecipientAnalysis {
	key := cache.Key(cachePrefix, profile.CacheParams())
	if a, ok := s.cache.Get(key); ok {
		s.metrics.IncCache(s.cache.Name(), true)
		s.log.Debugw("using cached analysis", "key", key)
		return a
	}
	s.metrics.IncCache(s.cache.Name(), false)

	if !s.primaryReady() {
		return s.heuristic(ctx, profile)
	}
	if s.limiter != nil && !s.limiter.Allow(s.provider, "") {
		s.metrics.IncDenied(s.provider)
		s.log.Warnw("analysis rate limited, using heuristic", "provider", s.provider)
		return s.heuristic(ctx, profile)
	}

	a, err := s.primary.Analyze(ctx, profile)
	if err != nil {
		s.log.Warnw("analysis failed, using heuristic", "provider", s.provider, "error", err)
		return s.heuristic(ctx, profile)
	}
	s.cache.Set(key, a, s.ttl)
	return a
}

func (s *Service) primaryReady() bool {
	if s.primary == nil {
		return false
	}
	if c, ok := s.primary.(configurable); ok {
		return c.Configured()
	}
	return true
}

func (s *Service) heuristic(ctx context.Context, profile types.RecipientProfile) types.RecipientAnalysis {
	a, _ := s.fallback.Analyze(ctx, profile)
	return a
}

// NewFromConfig builds the Service for cfg.Analysis: the configured
// provider, the shared limiter, and usage recording through usage.
func NewFromConfig(ctx context.Context, cfg types.Config, c *AnalysisCache, limiter Limiter, usage UsageRecorder, log *zap.SugaredLogger, m *metrics.Metrics) *Service {
	var primary Analyzer
	switch cfg.Analysis.Provider {
	case types.ProviderOpenAI:
		primary = NewOpenAIAnalyzer(cfg.Analysis.OpenAI, cfg.HTTP, usage, log)
	case types.ProviderGoogleAI:
		primary = NewGenkitAnalyzer(ctx, cfg.Analysis.GoogleAI, usage, log)
	}
	s := NewService(primary, cfg.Analysis.Provider, c, limiter,
		WithLogger(log), WithCacheTTL(cfg.Analysis.CacheTTL), WithMetrics(m))
	if !s.primaryReady() && cfg.Analysis.Provider != types.ProviderHeuristic {
		s.log.Warnw("analysis provider not configured, using heuristic", "provider", cfg.Analysis.Provider)
	}
	return s
}
