// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/gift-engine/internal/analysis"
	"github.com/pdiddy/gift-engine/internal/metrics"
	"github.com/pdiddy/gift-engine/internal/search"
	"github.com/pdiddy/gift-engine/internal/store"
	"github.com/pdiddy/gift-engine/pkg/types"
)

// --- test helpers ---

type denySource struct{ denied string }

func (d denySource) Allow(service, _ string) bool { return service != d.denied }

type fixture struct {
	e     *echo.Echo
	store *store.Store
	m     *metrics.Metrics
}

func catalogProducts() []types.StandardizedProduct {
	return []types.StandardizedProduct{
		{ExternalID: "mug-1", Title: "Hiking Coffee Mug", ProductURL: "https://shop.example/mug-1", Price: types.Float(18), Categories: []string{"Home"}},
		{ExternalID: "tent-1", Title: "Two Person Hiking Tent", ProductURL: "https://shop.example/tent-1", Price: types.Float(120), Categories: []string{"Sports"}},
		{ExternalID: "book-1", Title: "Trail Guide Book", ProductURL: "https://shop.example/book-1", Price: types.Float(25)},
	}
}

func newFixture(t *testing.T, limiter search.Limiter) *fixture {
	t.Helper()
	st, err := store.NewStore(types.StoreConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg := search.NewRegistry()
	reg.Register(search.SourceCatalog, search.NewCatalogFromProducts(catalogProducts()))

	m := metrics.New()
	co := search.NewCoordinator(reg, limiter, nil, st, search.WithMetrics(m))
	svc := analysis.NewService(nil, types.ProviderHeuristic, nil, nil)

	return &fixture{e: New(NewController(co, svc, st), m, nil), store: st, m: m}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// --- tests ---

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, []any{"catalog"}, body["sources"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/api/products/search", `{"queries":["mug"]}`)

	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gift_engine_")
}

func TestSearchProducts(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodPost, "/api/products/search", `{"queries":["hiking"],"sortBy":"price","limit":5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res search.Result
	decode(t, rec, &res)
	assert.Equal(t, 2, res.TotalProducts)
	assert.Equal(t, []string{"catalog"}, res.Sources)
	require.Len(t, res.Results["catalog"], 2)
	assert.Equal(t, "mug-1", res.Results["catalog"][0].ExternalID, "sorted by price")

	n, err := f.store.CountProducts(context.Background(), store.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, n, "results persisted")
}

func TestSearchProducts_UnknownSourceIsEmpty(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodPost, "/api/products/search", `{"queries":["hiking"],"sources":["nowhere"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res search.Result
	decode(t, rec, &res)
	assert.Equal(t, 0, res.TotalProducts)
	assert.Contains(t, res.Results, "nowhere")
	assert.Empty(t, res.Sources)
}

func TestSearchProducts_BadRequests(t *testing.T) {
	f := newFixture(t, nil)
	tests := []struct {
		name string
		body string
	}{
		{"missing queries", `{}`},
		{"empty queries", `{"queries":[]}`},
		{"blank query", `{"queries":[""]}`},
		{"bad sort", `{"queries":["x"],"sortBy":"newest"}`},
		{"negative price", `{"queries":["x"],"minPrice":-1}`},
		{"min above max", `{"queries":["x"],"minPrice":50,"maxPrice":10}`},
		{"malformed", `{"queries":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/products/search", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			var body ErrorResponse
			decode(t, rec, &body)
			assert.Equal(t, "invalid_request", body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestAnalyze(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodPost, "/api/ai/analyze", `{"description":"loves hiking and coffee","occasion":"birthday"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Analysis types.RecipientAnalysis `json:"analysis"`
	}
	decode(t, rec, &body)
	assert.Equal(t, types.ProviderHeuristic, body.Analysis.Provider)
	assert.Equal(t, []string{"loves", "hiking", "coffee"}, body.Analysis.ExtractedKeywords)

	rec = f.do(t, http.MethodPost, "/api/ai/analyze", `{"occasion":"birthday"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_ProfileToProducts(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodPost, "/api/search", `{"queryText":"hiking"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body SearchResponse
	decode(t, rec, &body)
	assert.Equal(t, []string{"hiking"}, body.Queries)
	assert.Equal(t, 2, body.TotalProducts)
	assert.Equal(t, []string{"hiking"}, body.Analysis.ExtractedKeywords)
}

func TestSearch_ExplicitQueriesAndBudget(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodPost, "/api/search", `{"description":"outdoor person","queries":["hiking"],"budgetMax":50}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body SearchResponse
	decode(t, rec, &body)
	assert.Equal(t, []string{"hiking"}, body.Queries)
	require.Equal(t, 1, body.TotalProducts)
	assert.Equal(t, "mug-1", body.Results["catalog"][0].ExternalID)
}

func TestSearch_RequiresIntent(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodPost, "/api/search", `{"occasion":"birthday"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListProducts(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/api/products/search", `{"queries":["hiking"]}`)

	rec := f.do(t, http.MethodGet, "/api/products?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Products   []types.ProductRecord `json:"products"`
		Pagination Pagination            `json:"pagination"`
	}
	decode(t, rec, &body)
	assert.Len(t, body.Products, 1)
	assert.Equal(t, Pagination{Total: 2, Limit: 1, Offset: 0, HasMore: true}, body.Pagination)

	rec = f.do(t, http.MethodGet, "/api/products?category=sports", "")
	decode(t, rec, &body)
	require.Len(t, body.Products, 1)
	assert.Equal(t, "tent-1", body.Products[0].ExternalID)
	assert.False(t, body.Pagination.HasMore)

	rec = f.do(t, http.MethodGet, "/api/products?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProduct(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/products/catalog/tent-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Product types.StandardizedProduct `json:"product"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "Two Person Hiking Tent", body.Product.Title)
	assert.Equal(t, "catalog", body.Product.Source)

	rec = f.do(t, http.MethodGet, "/api/products/catalog/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/products/nowhere/tent-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetProduct_RateLimited(t *testing.T) {
	f := newFixture(t, denySource{denied: search.SourceCatalog})
	rec := f.do(t, http.MethodGet, "/api/products/catalog/tent-1", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var body ErrorResponse
	decode(t, rec, &body)
	assert.Equal(t, "rate_limited", body.Code)
}

func TestTags_Lifecycle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	rec := f.do(t, http.MethodPost, "/api/tags", `{"name":"  Outdoors ","color":"#00aa00"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Tag types.Tag `json:"tag"`
	}
	decode(t, rec, &created)
	assert.Equal(t, "outdoors", created.Tag.Name)

	rec = f.do(t, http.MethodPost, "/api/tags", `{"name":"OUTDOORS"}`)
	assert.Equal(t, http.StatusOK, rec.Code, "existing tag returned")

	rec = f.do(t, http.MethodPost, "/api/tags", `{"color":"green"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.do(t, http.MethodPost, "/api/products/search", `{"queries":["tent"]}`)
	products, err := f.store.FindProducts(ctx, store.ProductFilter{}, store.Page{})
	require.NoError(t, err)
	require.Len(t, products, 1)
	pid := products[0].ID

	rec = f.do(t, http.MethodPost, "/api/products/"+pid+"/tags", `{"tagIds":["`+created.Tag.ID+`"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var assigned struct {
		Assigned int         `json:"assigned"`
		Tags     []types.Tag `json:"tags"`
	}
	decode(t, rec, &assigned)
	assert.Equal(t, 1, assigned.Assigned)
	require.Len(t, assigned.Tags, 1)

	rec = f.do(t, http.MethodGet, "/api/tags/"+created.Tag.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Tag types.TagDetail `json:"tag"`
	}
	decode(t, rec, &detail)
	assert.Equal(t, 1, detail.Tag.UsageCount)
	assert.Len(t, detail.Tag.Products, 1)

	rec = f.do(t, http.MethodGet, "/api/tags?search=out", "")
	var list struct {
		Tags []types.Tag `json:"tags"`
	}
	decode(t, rec, &list)
	assert.Len(t, list.Tags, 1)

	rec = f.do(t, http.MethodPatch, "/api/tags/"+created.Tag.ID, `{"description":"camping and trails"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated struct {
		Tag types.Tag `json:"tag"`
	}
	decode(t, rec, &updated)
	assert.Equal(t, "camping and trails", updated.Tag.Description)

	rec = f.do(t, http.MethodDelete, "/api/products/"+pid+"/tags", `{"tagIds":["`+created.Tag.ID+`"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var removed struct {
		Removed int `json:"removed"`
	}
	decode(t, rec, &removed)
	assert.Equal(t, 1, removed.Removed)

	rec = f.do(t, http.MethodDelete, "/api/tags/"+created.Tag.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/tags/"+created.Tag.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTags_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.store.EnsureSystemTags(ctx, []string{"books"}))
	tags, err := f.store.ListTags(ctx, store.TagFilter{})
	require.NoError(t, err)
	sys := tags[0].ID

	rec := f.do(t, http.MethodDelete, "/api/tags/"+sys, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/tags/"+sys, `{"name":"x"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/products/missing/tags", `{"tagIds":["`+sys+`"]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/products/missing/tags", `{"tagIds":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/api/nothing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body ErrorResponse
	decode(t, rec, &body)
	assert.Equal(t, "not_found", body.Code)
}
