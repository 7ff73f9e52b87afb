// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pdiddy/gift-engine/internal/analysis"
	"github.com/pdiddy/gift-engine/internal/search"
	"github.com/pdiddy/gift-engine/internal/store"
	"github.com/pdiddy/gift-engine/pkg/types"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Searcher is the aggregation surface. *search.Coordinator implements it.
type Searcher interface {
	Sources() []string
	SearchAll(ctx context.Context, queries []string, opts types.SearchOptions, sources []string) (search.Result, error)
	GetProduct(ctx context.Context, source, id string) (*types.StandardizedProduct, error)
}

// Analyzer turns a profile into search intent. *analysis.Service
// implements it.
type Analyzer interface {
	Analyze(ctx context.Context, profile types.RecipientProfile) types.RecipientAnalysis
}

// Store is the persistence surface. *store.Store implements it.
type Store interface {
	FindProducts(ctx context.Context, filter store.ProductFilter, page store.Page) ([]types.ProductRecord, error)
	CountProducts(ctx context.Context, filter store.ProductFilter) (int, error)
	AssignTags(ctx context.Context, productID string, tagIDs []string) (int, error)
	RemoveTags(ctx context.Context, productID string, tagIDs []string) (int, error)
	ProductTags(ctx context.Context, productID string) ([]types.Tag, error)
	CreateTag(ctx context.Context, t types.Tag) (types.Tag, bool, error)
	ListTags(ctx context.Context, filter store.TagFilter) ([]types.Tag, error)
	GetTag(ctx context.Context, id string) (*types.TagDetail, error)
	UpdateTag(ctx context.Context, id string, u store.TagUpdate) (types.Tag, error)
	DeleteTag(ctx context.Context, id string) error
}

// Controller holds the HTTP handlers.
type Controller struct {
	searcher Searcher
	analyzer Analyzer
	store    Store
}

// NewController returns a Controller.
func NewController(s Searcher, a Analyzer, st Store) *Controller {
	return &Controller{searcher: s, analyzer: a, store: st}
}

// Health reports liveness and the registered sources.
func (h *Controller) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "gift-engine",
		"sources": h.searcher.Sources(),
	})
}

// AnalyzeRequest is the body of POST /api/ai/analyze.
type AnalyzeRequest struct {
	types.RecipientProfile
}

// Analyze returns the analysis for a profile.
func (h *Controller) Analyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Description) == "" && len(req.Interests) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "description or interests are required")
	}
	a := h.analyzer.Analyze(c.Request().Context(), req.RecipientProfile)
	return c.JSON(http.StatusOK, map[string]any{"analysis": a})
}

// ProductSearchRequest is the body of POST /api/products/search.
type ProductSearchRequest struct {
	Queries  []string     `json:"queries" validate:"required,min=1,dive,required"`
	Sources  []string     `json:"sources"`
	Limit    *int         `json:"limit" validate:"omitempty,min=0,max=100"`
	MinPrice *float64     `json:"minPrice" validate:"omitempty,min=0"`
	MaxPrice *float64     `json:"maxPrice" validate:"omitempty,min=0"`
	Category string       `json:"category"`
	SortBy   types.SortBy `json:"sortBy" validate:"sortby"`
}

// SearchProducts runs an aggregated search.
func (h *Controller) SearchProducts(c echo.Context) error {
	var req ProductSearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	opts := types.SearchOptions{
		Limit:    req.Limit,
		MinPrice: req.MinPrice,
		MaxPrice: req.MaxPrice,
		Category: req.Category,
		SortBy:   req.SortBy,
	}
	res, err := h.searcher.SearchAll(c.Request().Context(), req.Queries, opts, req.Sources)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// SearchRequest is the body of POST /api/search: a profile plus optional
// explicit queries.
type SearchRequest struct {
	types.RecipientProfile
	QueryText string   `json:"queryText"`
	Queries   []string `json:"queries"`
	Sources   []string `json:"sources"`
	Limit     *int     `json:"limit" validate:"omitempty,min=0,max=100"`
}

// SearchResponse is the reply of POST /api/search.
type SearchResponse struct {
	Analysis types.RecipientAnalysis `json:"analysis"`
	Queries  []string                `json:"queries"`
	search.Result
}

// Search analyzes the profile and searches with the resulting queries.
func (h *Controller) Search(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	queryText := strings.TrimSpace(req.QueryText)
	if strings.TrimSpace(req.Description) == "" && queryText == "" && len(req.Interests) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "query text, description, or interests are required")
	}

	profile := req.RecipientProfile
	if strings.TrimSpace(profile.Description) == "" {
		profile.Description = queryText
	}

	ctx := c.Request().Context()
	a := h.analyzer.Analyze(ctx, profile)

	queries := trimmed(req.Queries)
	if len(queries) == 0 {
		queries = analysis.CandidateQueries(a, profile)
	}
	if len(queries) == 0 && queryText != "" {
		queries = []string{queryText}
	}

	opts := types.SearchOptions{
		Limit:    req.Limit,
		MinPrice: profile.BudgetMin,
		MaxPrice: profile.BudgetMax,
	}
	res, err := h.searcher.SearchAll(ctx, queries, opts, req.Sources)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, SearchResponse{Analysis: a, Queries: nonNil(queries), Result: res})
}

// Pagination describes a page of a listing.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// ListProducts pages through stored products.
func (h *Controller) ListProducts(c echo.Context) error {
	limit, err := intParam(c, "limit", defaultPageLimit)
	if err != nil {
		return err
	}
	offset, err := intParam(c, "offset", 0)
	if err != nil {
		return err
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	limit = min(limit, maxPageLimit)
	if offset < 0 {
		offset = 0
	}

	filter := store.ProductFilter{Source: c.QueryParam("source"), Category: c.QueryParam("category")}
	ctx := c.Request().Context()
	products, err := h.store.FindProducts(ctx, filter, store.Page{Limit: limit, Offset: offset})
	if err != nil {
		return err
	}
	total, err := h.store.CountProducts(ctx, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"products": products,
		"pagination": Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(products) < total,
		},
	})
}

// GetProduct looks a product up live on its source.
func (h *Controller) GetProduct(c echo.Context) error {
	source, id := c.Param("source"), c.Param("productId")
	p, err := h.searcher.GetProduct(c.Request().Context(), source, id)
	if err != nil {
		return err
	}
	if p == nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}
	return c.JSON(http.StatusOK, map[string]any{"product": p})
}

// TagIDsRequest is the body of the product tag routes.
type TagIDsRequest struct {
	TagIDs []string `json:"tagIds" validate:"required,min=1,dive,required"`
}

// AssignTags attaches tags to a stored product.
func (h *Controller) AssignTags(c echo.Context) error {
	return h.changeTags(c, "assigned", h.store.AssignTags)
}

// RemoveTags detaches tags from a stored product.
func (h *Controller) RemoveTags(c echo.Context) error {
	return h.changeTags(c, "removed", h.store.RemoveTags)
}

func (h *Controller) changeTags(c echo.Context, verb string, change func(context.Context, string, []string) (int, error)) error {
	var req TagIDsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	productID := c.Param("productId")
	n, err := change(ctx, productID, req.TagIDs)
	if err != nil {
		return err
	}
	tags, err := h.store.ProductTags(ctx, productID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{verb: n, "tags": tags})
}

// ListTags returns tags, optionally filtered by category or name.
func (h *Controller) ListTags(c echo.Context) error {
	tags, err := h.store.ListTags(c.Request().Context(), store.TagFilter{
		Category: c.QueryParam("category"),
		Search:   c.QueryParam("search"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"tags": tags})
}

// CreateTagRequest is the body of POST /api/tags.
type CreateTagRequest struct {
	Name        string `json:"name" validate:"required,max=50"`
	Category    string `json:"category" validate:"max=50"`
	Description string `json:"description" validate:"max=500"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
}

// CreateTag stores a tag. An existing tag with the same name is returned
// with 200 instead of 201.
func (h *Controller) CreateTag(c echo.Context) error {
	var req CreateTagRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	t, created, err := h.store.CreateTag(c.Request().Context(), types.Tag{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		return err
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, map[string]any{"tag": t})
}

// GetTag returns a tag with a sample of its products.
func (h *Controller) GetTag(c echo.Context) error {
	t, err := h.store.GetTag(c.Request().Context(), c.Param("tagId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"tag": t})
}

// UpdateTag applies a partial update to a user tag.
func (h *Controller) UpdateTag(c echo.Context) error {
	var u store.TagUpdate
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	t, err := h.store.UpdateTag(c.Request().Context(), c.Param("tagId"), u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"tag": t})
}

// DeleteTag removes a user tag.
func (h *Controller) DeleteTag(c echo.Context) error {
	if err := h.store.DeleteTag(c.Request().Context(), c.Param("tagId")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "tag deleted"})
}

func intParam(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be an integer")
	}
	return n, nil
}

func trimmed(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
