// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/gift-engine/internal/ratelimit"
	"github.com/pdiddy/gift-engine/internal/retry"
	"github.com/pdiddy/gift-engine/pkg/types"
)

// fakeAdapter records queries and answers from a function.
type fakeAdapter struct {
	mu      sync.Mutex
	queries []string
	fn      func(ctx context.Context, query string) ([]types.StandardizedProduct, error)
}

func (f *fakeAdapter) Search(ctx context.Context, query string, _ types.SearchOptions) ([]types.StandardizedProduct, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	return f.fn(ctx, query)
}

func (f *fakeAdapter) GetProduct(_ context.Context, id string) (*types.StandardizedProduct, error) {
	if id == "known" {
		return &types.StandardizedProduct{ExternalID: id, Title: "Known", ProductURL: "https://x/known"}, nil
	}
	return nil, nil
}

func (f *fakeAdapter) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func products(n int, prefix string) []types.StandardizedProduct {
	out := make([]types.StandardizedProduct, n)
	for i := range out {
		out[i] = types.StandardizedProduct{
			ExternalID: fmt.Sprintf("%s-%d", prefix, i),
			Title:      fmt.Sprintf("%s %d", prefix, i),
			ProductURL: fmt.Sprintf("https://example.com/%s/%d", prefix, i),
		}
	}
	return out
}

func returning(ps []types.StandardizedProduct) *fakeAdapter {
	return &fakeAdapter{fn: func(context.Context, string) ([]types.StandardizedProduct, error) {
		return ps, nil
	}}
}

func failing() *fakeAdapter {
	return &fakeAdapter{fn: func(context.Context, string) ([]types.StandardizedProduct, error) {
		return nil, errors.New("upstream unavailable")
	}}
}

// delayRecorder is a retry wait that never sleeps.
type delayRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *delayRecorder) wait(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func (r *delayRecorder) get() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

// memorySink records upserts and can be told to fail.
type memorySink struct {
	mu       sync.Mutex
	upserted map[string]int
	err      error
}

func (s *memorySink) UpsertProducts(_ context.Context, source string, ps []types.StandardizedProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upserted == nil {
		s.upserted = map[string]int{}
	}
	s.upserted[source] += len(ps)
	return s.err
}

func newTestCoordinator(t *testing.T, adapters map[string]Adapter, opts ...Option) (*Coordinator, *delayRecorder) {
	t.Helper()
	reg := NewRegistry()
	for name, a := range adapters {
		reg.Register(name, a)
	}
	rec := &delayRecorder{}
	p := retry.DefaultPolicy()
	p.Wait = rec.wait
	all := append([]Option{WithRetryPolicy(p)}, opts...)
	return NewCoordinator(reg, nil, nil, nil, all...), rec
}

func TestSearchAll_IdempotentCaching(t *testing.T) {
	a := returning(products(3, "lego"))
	co, _ := newTestCoordinator(t, map[string]Adapter{"working": a})

	first, err := co.SearchAll(context.Background(), []string{"lego"}, types.SearchOptions{}, nil)
	require.NoError(t, err)
	second, err := co.SearchAll(context.Background(), []string{"lego"}, types.SearchOptions{}, nil)
	require.NoError(t, err)

	assert.Len(t, a.calls(), 1, "second call must be served from cache")
	assert.Equal(t, first.Results, second.Results)
}

func TestSearchAll_DefaultLimitSharesCacheWithExplicit(t *testing.T) {
	a := returning(products(3, "lego"))
	co, _ := newTestCoordinator(t, map[string]Adapter{"working": a})

	_, err := co.SearchAll(context.Background(), []string{"lego"}, types.SearchOptions{}, nil)
	require.NoError(t, err)
	_, err = co.SearchAll(context.Background(), []string{"lego"}, types.SearchOptions{Limit: types.Int(types.DefaultLimit)}, nil)
	require.NoError(t, err)

	assert.Len(t, a.calls(), 1)
}

func TestSearchAll_DifferentOptionsMissCache(t *testing.T) {
	a := returning(products(3, "lego"))
	co, _ := newTestCoordinator(t, map[string]Adapter{"working": a})

	_, err := co.SearchAll(context.Background(), []string{"lego"}, types.SearchOptions{}, nil)
	require.NoError(t, err)
	_, err = co.SearchAll(context.Background(), []string{"lego"}, types.SearchOptions{SortBy: types.SortPrice}, nil)
	require.NoError(t, err)

	assert.Len(t, a.calls(), 2)
}

func TestSearchAll_PartialFailureIsolation(t *testing.T) {
	bad := failing()
	good := returning(products(3, "telescope"))
	co, rec := newTestCoordinator(t, map[string]Adapter{"failing": bad, "working": good})

	res, err := co.SearchAll(context.Background(), []string{"telescope"}, types.SearchOptions{}, []string{"failing", "working"})
	require.NoError(t, err)

	require.Contains(t, res.Results, "failing")
	assert.Empty(t, res.Results["failing"])
	assert.Len(t, res.Results["working"], 3)
	assert.Equal(t, 3, res.TotalProducts)
	assert.Equal(t, []string{"working"}, res.Sources)
	assert.Len(t, bad.calls(), 3)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.get())
}

func TestSearchAll_RetryExhaustionStopsSource(t *testing.T) {
	bad := failing()
	co, rec := newTestCoordinator(t, map[string]Adapter{"failing": bad})

	res, err := co.SearchAll(context.Background(), []string{"first", "second"}, types.SearchOptions{}, nil)
	require.NoError(t, err)

	assert.Empty(t, res.Results["failing"])
	assert.Equal(t, []string{"first", "first", "first"}, bad.calls(), "a failed call must not advance to the next query")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.get())
}

func TestSearchAll_RetryThenSuccess(t *testing.T) {
	var n int
	var mu sync.Mutex
	a := &fakeAdapter{fn: func(context.Context, string) ([]types.StandardizedProduct, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		if n == 1 {
			return nil, errors.New("flaky")
		}
		return products(1, "kite"), nil
	}}
	co, rec := newTestCoordinator(t, map[string]Adapter{"flaky": a})

	res, err := co.SearchAll(context.Background(), []string{"kite"}, types.SearchOptions{}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Results["flaky"], 1)
	assert.Equal(t, []time.Duration{time.Second}, rec.get())
}

func TestSearchAll_QueryFallthrough(t *testing.T) {
	a := &fakeAdapter{fn: func(_ context.Context, q string) ([]types.StandardizedProduct, error) {
		if q == "camera" {
			return products(2, "camera"), nil
		}
		return []types.StandardizedProduct{}, nil
	}}
	co, _ := newTestCoordinator(t, map[string]Adapter{"shop": a})

	res, err := co.SearchAll(context.Background(), []string{"rare vintage camera", "camera", "lens"}, types.SearchOptions{}, nil)
	require.NoError(t, err)

	assert.Len(t, res.Results["shop"], 2)
	assert.Equal(t, "camera 0", res.Results["shop"][0].Title)
	assert.Equal(t, []string{"rare vintage camera", "camera"}, a.calls())
}

func TestSearchAll_CachedEmptyAdvancesWithoutCall(t *testing.T) {
	a := &fakeAdapter{fn: func(_ context.Context, q string) ([]types.StandardizedProduct, error) {
		if q == "camera" {
			return products(2, "camera"), nil
		}
		return nil, nil
	}}
	co, _ := newTestCoordinator(t, map[string]Adapter{"shop": a})

	_, err := co.SearchAll(context.Background(), []string{"rare vintage camera", "camera"}, types.SearchOptions{}, nil)
	require.NoError(t, err)
	res, err := co.SearchAll(context.Background(), []string{"rare vintage camera", "camera"}, types.SearchOptions{}, nil)
	require.NoError(t, err)

	assert.Len(t, res.Results["shop"], 2)
	assert.Len(t, a.calls(), 2, "both keys were cached on the first search")
}

func TestSearchAll_Truncation(t *testing.T) {
	a := returning(products(5, "book"))
	co, _ := newTestCoordinator(t, map[string]Adapter{"shop": a})

	res, err := co.SearchAll(context.Background(), []string{"book"}, types.SearchOptions{Limit: types.Int(2)}, nil)
	require.NoError(t, err)

	require.Len(t, res.Results["shop"], 2)
	assert.Equal(t, "book 0", res.Results["shop"][0].Title)
	assert.Equal(t, "book 1", res.Results["shop"][1].Title)
}

func TestSearchAll_DefaultLimit(t *testing.T) {
	a := returning(products(25, "mug"))
	co, _ := newTestCoordinator(t, map[string]Adapter{"shop": a})

	res, err := co.SearchAll(context.Background(), []string{"mug"}, types.SearchOptions{}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Results["shop"], types.DefaultLimit)
}

func TestSearchAll_InvalidProductsDropped(t *testing.T) {
	ps := products(3, "hat")
	ps[1].Title = "   "
	ps[2].Rating = types.Float(7)
	co, _ := newTestCoordinator(t, map[string]Adapter{"shop": returning(ps)})

	res, err := co.SearchAll(context.Background(), []string{"hat"}, types.SearchOptions{}, nil)
	require.NoError(t, err)

	require.Len(t, res.Results["shop"], 1)
	got := res.Results["shop"][0]
	assert.Equal(t, "hat 0", got.Title)
	assert.Equal(t, "shop", got.Source)
	assert.Equal(t, types.DefaultCurrency, got.Currency)
}

func TestSearchAll_AllInvalidAdvancesToNextQuery(t *testing.T) {
	a := &fakeAdapter{fn: func(_ context.Context, q string) ([]types.StandardizedProduct, error) {
		if q == "first" {
			return []types.StandardizedProduct{{Title: "no link"}}, nil
		}
		return products(1, "second"), nil
	}}
	co, _ := newTestCoordinator(t, map[string]Adapter{"shop": a})

	res, err := co.SearchAll(context.Background(), []string{"first", "second"}, types.SearchOptions{}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Results["shop"], 1)
	assert.Equal(t, []string{"first", "second"}, a.calls())
}

func TestSearchAll_RateLimitDenialYieldsEmpty(t *testing.T) {
	a := returning(products(1, "x"))
	reg := NewRegistry()
	reg.Register("amazon", a)
	limiter := ratelimit.New(map[string]types.RateLimitRule{
		"amazon": {MaxRequests: 1, Window: time.Minute},
	})
	co := NewCoordinator(reg, limiter, nil, nil)

	res, err := co.SearchAll(context.Background(), []string{"one"}, types.SearchOptions{}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Results["amazon"], 1)

	res, err = co.SearchAll(context.Background(), []string{"two"}, types.SearchOptions{}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Results["amazon"])
	assert.Empty(t, res.Sources)
	assert.Len(t, a.calls(), 1)
}

func TestSearchAll_EdgeCases(t *testing.T) {
	a := returning(products(2, "x"))
	co, _ := newTestCoordinator(t, map[string]Adapter{"shop": a})

	t.Run("empty queries", func(t *testing.T) {
		res, err := co.SearchAll(context.Background(), nil, types.SearchOptions{}, nil)
		require.NoError(t, err)
		assert.Empty(t, res.Results["shop"])
	})

	t.Run("blank queries", func(t *testing.T) {
		res, err := co.SearchAll(context.Background(), []string{"  ", ""}, types.SearchOptions{}, nil)
		require.NoError(t, err)
		assert.Empty(t, res.Results["shop"])
	})

	t.Run("unknown source", func(t *testing.T) {
		res, err := co.SearchAll(context.Background(), []string{"x"}, types.SearchOptions{}, []string{"nowhere"})
		require.NoError(t, err)
		require.Contains(t, res.Results, "nowhere")
		assert.Empty(t, res.Results["nowhere"])
	})

	t.Run("zero limit", func(t *testing.T) {
		res, err := co.SearchAll(context.Background(), []string{"x"}, types.SearchOptions{Limit: types.Int(0)}, nil)
		require.NoError(t, err)
		assert.Empty(t, res.Results["shop"])
	})

	assert.Empty(t, a.calls(), "no edge case may contact the adapter")
}

func TestSearchAll_InvalidOptionsRejected(t *testing.T) {
	a := returning(products(1, "x"))
	co, _ := newTestCoordinator(t, map[string]Adapter{"shop": a})

	_, err := co.SearchAll(context.Background(), []string{"x"}, types.SearchOptions{SortBy: "random"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidOptions)
	assert.Empty(t, a.calls())
}

func TestSearchAll_PanicIsolated(t *testing.T) {
	boom := &fakeAdapter{fn: func(context.Context, string) ([]types.StandardizedProduct, error) {
		panic("adapter bug")
	}}
	co, _ := newTestCoordinator(t, map[string]Adapter{"boom": boom, "ok": returning(products(1, "x"))})

	res, err := co.SearchAll(context.Background(), []string{"x"}, types.SearchOptions{}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Results["boom"])
	assert.Len(t, res.Results["ok"], 1)
}

func TestSearchAll_PersistFailureSwallowed(t *testing.T) {
	sink := &memorySink{err: errors.New("disk full")}
	reg := NewRegistry()
	reg.Register("shop", returning(products(2, "x")))
	co := NewCoordinator(reg, nil, nil, sink)

	res, err := co.SearchAll(context.Background(), []string{"x"}, types.SearchOptions{}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Results["shop"], 2)
	assert.Equal(t, 2, sink.upserted["shop"])
}

func TestSearchAll_MaxQueriesPerSource(t *testing.T) {
	a := returning(nil)
	co, _ := newTestCoordinator(t, map[string]Adapter{"shop": a}, WithMaxQueriesPerSource(2))

	_, err := co.SearchAll(context.Background(), []string{"a", "b", "c", "d"}, types.SearchOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, a.calls())
}

func TestSearchAll_TimeoutBoundsSlowSource(t *testing.T) {
	slow := &fakeAdapter{fn: func(ctx context.Context, _ string) ([]types.StandardizedProduct, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	co, _ := newTestCoordinator(t, map[string]Adapter{"slow": slow, "fast": returning(products(1, "x"))},
		WithTimeout(50*time.Millisecond))

	start := time.Now()
	res, err := co.SearchAll(context.Background(), []string{"x"}, types.SearchOptions{}, nil)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Empty(t, res.Results["slow"])
	assert.Len(t, res.Results["fast"], 1)
}

func TestSearchAll_CachedListIsNotAliased(t *testing.T) {
	co, _ := newTestCoordinator(t, map[string]Adapter{"shop": returning(products(1, "x"))})

	res, err := co.SearchAll(context.Background(), []string{"x"}, types.SearchOptions{}, nil)
	require.NoError(t, err)
	res.Results["shop"][0].Title = "mutated"

	again, err := co.SearchAll(context.Background(), []string{"x"}, types.SearchOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "x 0", again.Results["shop"][0].Title)
}

func TestGetProduct(t *testing.T) {
	reg := NewRegistry()
	reg.Register("amazon", returning(nil))
	limiter := ratelimit.New(map[string]types.RateLimitRule{
		"amazon": {MaxRequests: 1, Window: time.Minute},
	})
	co := NewCoordinator(reg, limiter, nil, nil)

	p, err := co.GetProduct(context.Background(), "nowhere", "known")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = co.GetProduct(context.Background(), "amazon", "known")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "amazon", p.Source)

	_, err = co.GetProduct(context.Background(), "amazon", "known")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestSources(t *testing.T) {
	co, _ := newTestCoordinator(t, map[string]Adapter{"b": returning(nil), "a": returning(nil)})
	assert.Equal(t, []string{"a", "b"}, co.Sources())
}
