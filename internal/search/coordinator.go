// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/gift-engine/internal/cache"
	"github.com/pdiddy/gift-engine/internal/metrics"
	"github.com/pdiddy/gift-engine/internal/normalize"
	"github.com/pdiddy/gift-engine/internal/retry"
	"github.com/pdiddy/gift-engine/pkg/types"
)

const (
	searchCachePrefix    = "product-search"
	defaultCacheTTL      = time.Hour
	defaultMaxQueries    = 5
	defaultSearchTimeout = 30 * time.Second
	productCacheName     = "search"
)

// Limiter gates requests per service. *ratelimit.Limiter satisfies it.
type Limiter interface {
	Allow(service, identifier string) bool
}

// Sink persists normalized products. *store.Store satisfies it.
type Sink interface {
	UpsertProducts(ctx context.Context, source string, products []types.StandardizedProduct) error
}

// ProductCache holds per-source result lists.
type ProductCache = cache.Cache[[]types.StandardizedProduct]

// Result maps every requested source to its products. Sources lists, in
// name order, the sources that returned at least one product.
type Result struct {
	Results       map[string][]types.StandardizedProduct `json:"results" yaml:"results"`
	TotalProducts int                                    `json:"totalProducts" yaml:"total_products"`
	Sources       []string                               `json:"sources" yaml:"sources"`
}

// Coordinator fans candidate queries out to sources concurrently. Each
// source tries the queries in order and stops at the first one that yields
// products. A failing, rate-limited or unknown source yields an empty list
// and never affects the others.
type Coordinator struct {
	registry   *Registry
	limiter    Limiter
	cache      *ProductCache
	sink       Sink
	policy     retry.Policy
	cacheTTL   time.Duration
	maxQueries int
	timeout    time.Duration
	log        *zap.SugaredLogger
	metrics    *metrics.Metrics
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRetryPolicy sets the per-call retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Coordinator) { c.policy = p }
}

// WithCacheTTL sets how long result lists stay cached.
func WithCacheTTL(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.cacheTTL = d
		}
	}
}

// WithMaxQueriesPerSource caps the candidate queries tried per source. Zero
// removes the cap.
func WithMaxQueriesPerSource(n int) Option {
	return func(c *Coordinator) { c.maxQueries = n }
}

// WithTimeout bounds one SearchAll call. Zero removes the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Coordinator) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// NewCoordinator wires a coordinator. A nil limiter admits everything, a
// nil cache is replaced by a private one and a nil sink disables
// persistence.
func NewCoordinator(reg *Registry, limiter Limiter, c *ProductCache, sink Sink, opts ...Option) *Coordinator {
	if reg == nil {
		reg = NewRegistry()
	}
	if c == nil {
		c = cache.New[[]types.StandardizedProduct](cache.WithName(productCacheName))
	}
	co := &Coordinator{
		registry:   reg,
		limiter:    limiter,
		cache:      c,
		sink:       sink,
		policy:     retry.DefaultPolicy(),
		cacheTTL:   defaultCacheTTL,
		maxQueries: defaultMaxQueries,
		timeout:    defaultSearchTimeout,
		log:        zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(co)
	}
	return co
}

// Sources returns the registered source names, sorted.
func (c *Coordinator) Sources() []string {
	return c.registry.Names()
}

// SearchAll runs queries against sources (all registered sources when
// sources is empty) and waits for every source to settle. Only invalid
// options fail the call; everything past acceptance degrades to empty
// lists.
func (c *Coordinator) SearchAll(ctx context.Context, queries []string, opts types.SearchOptions, sources []string) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	if len(sources) == 0 {
		sources = c.registry.Names()
	}
	sources = uniqueNames(sources)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	type sourceResult struct {
		name     string
		products []types.StandardizedProduct
	}

	ch := make(chan sourceResult, len(sources))
	var wg sync.WaitGroup

	for _, name := range sources {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			ch <- sourceResult{name: name, products: c.searchSource(ctx, name, queries, opts)}
		}(name)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	res := Result{
		Results: make(map[string][]types.StandardizedProduct, len(sources)),
		Sources: []string{},
	}
	for sr := range ch {
		res.Results[sr.name] = sr.products
		res.TotalProducts += len(sr.products)
		if len(sr.products) > 0 {
			res.Sources = append(res.Sources, sr.name)
		}
	}
	sort.Strings(res.Sources)

	c.log.Infow("search complete", "queries", len(queries), "sources", len(sources),
		"with_results", len(res.Sources), "products", res.TotalProducts)
	return res, nil
}

// searchSource runs the per-source algorithm. A panic in the adapter is
// recovered and treated as a source failure.
func (c *Coordinator) searchSource(ctx context.Context, name string, queries []string, opts types.SearchOptions) (out []types.StandardizedProduct) {
	out = []types.StandardizedProduct{}
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorw("source panicked", "source", name, "panic", fmt.Sprint(r))
			c.metrics.ObserveSource(name, metrics.OutcomeError, 0)
			out = []types.StandardizedProduct{}
		}
	}()

	limit := opts.EffectiveLimit()
	if limit <= 0 {
		return out
	}
	adapter, ok := c.registry.Lookup(name)
	if !ok {
		c.log.Debugw("unknown source", "source", name)
		return out
	}
	candidates := c.candidates(queries)
	if len(candidates) == 0 {
		return out
	}

	if c.limiter != nil && !c.limiter.Allow(name, "") {
		c.metrics.IncDenied(name)
		c.log.Warnw("source skipped by rate limiter", "source", name)
		return out
	}

	for _, q := range candidates {
		key := cache.Key(searchCachePrefix+":"+name, map[string]any{
			"query":   q,
			"options": opts.CacheParams(),
		})

		if cached, hit := c.cache.Get(key); hit {
			c.metrics.IncCache(productCacheName, true)
			c.log.Debugw("cache hit", "source", name, "query", q, "products", len(cached))
			if len(cached) > 0 {
				return slices.Clone(cached)
			}
			continue
		}
		c.metrics.IncCache(productCacheName, false)

		raw, err := c.call(ctx, adapter, name, q, opts)
		if err != nil {
			c.log.Errorw("source failed", "source", name, "query", q, "error", err)
			return out
		}

		products, dropped := normalize.NormalizeAll(raw, name, limit)
		if dropped > 0 {
			c.log.Debugw("dropped invalid products", "source", name, "query", q, "dropped", dropped)
		}
		c.cache.Set(key, slices.Clone(products), c.cacheTTL)
		if len(products) == 0 {
			continue
		}

		c.persist(ctx, name, products)
		return products
	}
	return out
}

// call invokes the adapter under the retry policy.
func (c *Coordinator) call(ctx context.Context, a Adapter, name, query string, opts types.SearchOptions) ([]types.StandardizedProduct, error) {
	start := time.Now()
	products, err := retry.Do(ctx, c.policy,
		func(ctx context.Context, _ int) ([]types.StandardizedProduct, error) {
			return a.Search(ctx, query, opts)
		},
		func(attempt int, delay time.Duration, err error) {
			c.metrics.IncRetry(name)
			c.log.Warnw("retrying source", "source", name, "query", query,
				"attempt", attempt, "delay", delay, "error", err)
		},
	)

	outcome := metrics.OutcomeSuccess
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
	case len(products) == 0:
		outcome = metrics.OutcomeEmpty
	}
	c.metrics.ObserveSource(name, outcome, time.Since(start))
	return products, err
}

// persist upserts products without the search deadline. Failures are
// logged and counted only.
func (c *Coordinator) persist(ctx context.Context, name string, products []types.StandardizedProduct) {
	if c.sink == nil {
		return
	}
	if err := c.sink.UpsertProducts(context.WithoutCancel(ctx), name, products); err != nil {
		c.metrics.IncPersistFailure(name)
		c.log.Errorw("persisting products failed", "source", name, "products", len(products), "error", err)
	}
}

// candidates trims queries, drops blanks and applies the per-source cap.
func (c *Coordinator) candidates(queries []string) []string {
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
		if c.maxQueries > 0 && len(out) == c.maxQueries {
			break
		}
	}
	return out
}

// GetProduct looks up one product on a source. An unknown source or id
// yields nil without error; a rate-limited source yields ErrRateLimited.
// Adapter failures are logged and reported as absent.
func (c *Coordinator) GetProduct(ctx context.Context, source, id string) (*types.StandardizedProduct, error) {
	adapter, ok := c.registry.Lookup(source)
	if !ok {
		return nil, nil
	}
	if c.limiter != nil && !c.limiter.Allow(source, "") {
		c.metrics.IncDenied(source)
		return nil, fmt.Errorf("%s: %w", source, ErrRateLimited)
	}

	p, err := adapter.GetProduct(ctx, id)
	if err != nil {
		c.log.Errorw("product lookup failed", "source", source, "id", id, "error", err)
		return nil, nil
	}
	if p == nil {
		return nil, nil
	}
	n, ok := normalize.Normalize(*p, source)
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func uniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
