// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/gift-engine/pkg/types"
)

// catalogFile is the on-disk layout of an offline catalog.
type catalogFile struct {
	Products []types.StandardizedProduct `json:"products" yaml:"products"`
}

// CatalogAdapter serves products from a local YAML or JSON file. It needs
// no credentials and is used for demos and offline runs.
type CatalogAdapter struct {
	products []types.StandardizedProduct
	byID     map[string]int
}

// NewCatalogAdapter loads the catalog at cfg.Path. An empty path yields an
// unconfigured adapter that warns once and returns empty results.
func NewCatalogAdapter(cfg types.CatalogConfig, log *zap.SugaredLogger) (*CatalogAdapter, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.Path == "" {
		log.Warnw("source not configured, returning empty results", "source", SourceCatalog)
		return NewCatalogFromProducts(nil), nil
	}

	data, err := os.ReadFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	var cf catalogFile
	switch strings.ToLower(filepath.Ext(cfg.Path)) {
	case ".json":
		err = json.Unmarshal(data, &cf)
	default:
		err = yaml.Unmarshal(data, &cf)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", cfg.Path, err)
	}
	log.Infow("catalog loaded", "path", cfg.Path, "products", len(cf.Products))
	return NewCatalogFromProducts(cf.Products), nil
}

// NewCatalogFromProducts returns a catalog over products.
func NewCatalogFromProducts(products []types.StandardizedProduct) *CatalogAdapter {
	c := &CatalogAdapter{byID: make(map[string]int)}
	for _, p := range products {
		if p.Source == "" {
			p.Source = SourceCatalog
		}
		if p.ExternalID != "" {
			c.byID[p.ExternalID] = len(c.products)
		}
		c.products = append(c.products, p)
	}
	return c
}

// Configured reports whether the catalog holds any products.
func (c *CatalogAdapter) Configured() bool { return len(c.products) > 0 }

// Search returns the products whose title, description or categories
// contain every query token, filtered by price and category and ordered
// per opts.SortBy.
func (c *CatalogAdapter) Search(ctx context.Context, query string, opts types.SearchOptions) ([]types.StandardizedProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokens := strings.Fields(strings.ToLower(query))
	out := []types.StandardizedProduct{}
	if len(tokens) == 0 {
		return out, nil
	}

	for _, p := range c.products {
		if !matchesAll(catalogText(p), tokens) || !withinOptions(p, opts) {
			continue
		}
		out = append(out, p)
	}

	switch opts.SortBy {
	case types.SortPrice:
		sort.SliceStable(out, func(i, j int) bool { return lessValue(out[i].Price, out[j].Price) })
	case types.SortRating:
		sort.SliceStable(out, func(i, j int) bool { return greaterValue(out[i].Rating, out[j].Rating) })
	}
	return out, nil
}

// GetProduct returns the product with externalId id.
func (c *CatalogAdapter) GetProduct(_ context.Context, id string) (*types.StandardizedProduct, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, nil
	}
	p := c.products[i]
	return &p, nil
}

func catalogText(p types.StandardizedProduct) string {
	return strings.ToLower(p.Title + " " + p.Description + " " + strings.Join(p.Categories, " "))
}

func matchesAll(text string, tokens []string) bool {
	for _, t := range tokens {
		if !strings.Contains(text, t) {
			return false
		}
	}
	return true
}

func withinOptions(p types.StandardizedProduct, opts types.SearchOptions) bool {
	if opts.MinPrice != nil && (p.Price == nil || *p.Price < *opts.MinPrice) {
		return false
	}
	if opts.MaxPrice != nil && (p.Price == nil || *p.Price > *opts.MaxPrice) {
		return false
	}
	if opts.Category != "" {
		found := false
		for _, c := range p.Categories {
			if strings.EqualFold(c, opts.Category) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// lessValue orders present values ascending, absent values last.
func lessValue(a, b *float64) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a < *b
	}
}

// greaterValue orders present values descending, absent values last.
func greaterValue(a, b *float64) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a > *b
	}
}
