// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// DefaultLimit is the per-source result cap when SearchOptions.Limit is nil.
const DefaultLimit = 10

// ErrInvalidOptions reports a SearchOptions envelope that cannot be served.
var ErrInvalidOptions = errors.New("invalid search options")

// SortBy selects the ordering requested from sources.
type SortBy string

const (
	SortRelevance SortBy = "relevance"
	SortPrice     SortBy = "price"
	SortRating    SortBy = "rating"
)

// SearchOptions is the caller-supplied filter and sort envelope.
type SearchOptions struct {
	// Limit caps the products returned per source. Nil means DefaultLimit;
	// zero or negative means no results are requested.
	Limit *int `json:"limit,omitempty" yaml:"limit,omitempty"`

	MinPrice *float64 `json:"minPrice,omitempty" yaml:"min_price,omitempty"`
	MaxPrice *float64 `json:"maxPrice,omitempty" yaml:"max_price,omitempty"`
	Category string   `json:"category,omitempty" yaml:"category,omitempty"`
	SortBy   SortBy   `json:"sortBy,omitempty" yaml:"sort_by,omitempty"`
}

// EffectiveLimit returns the limit after applying the default.
func (o SearchOptions) EffectiveLimit() int {
	if o.Limit == nil {
		return DefaultLimit
	}
	return *o.Limit
}

// Validate rejects envelopes with an unknown sort order or an impossible
// price range. Errors wrap ErrInvalidOptions.
func (o SearchOptions) Validate() error {
	switch o.SortBy {
	case "", SortRelevance, SortPrice, SortRating:
	default:
		return fmt.Errorf("%w: unknown sortBy %q", ErrInvalidOptions, o.SortBy)
	}
	if o.MinPrice != nil && *o.MinPrice < 0 {
		return fmt.Errorf("%w: minPrice must be non-negative", ErrInvalidOptions)
	}
	if o.MaxPrice != nil && *o.MaxPrice < 0 {
		return fmt.Errorf("%w: maxPrice must be non-negative", ErrInvalidOptions)
	}
	if o.MinPrice != nil && o.MaxPrice != nil && *o.MinPrice > *o.MaxPrice {
		return fmt.Errorf("%w: minPrice exceeds maxPrice", ErrInvalidOptions)
	}
	return nil
}

// CacheParams returns the options as a plain map for cache key generation.
// The limit is always the effective one; other absent fields are omitted.
func (o SearchOptions) CacheParams() map[string]any {
	m := map[string]any{"limit": o.EffectiveLimit()}
	if o.MinPrice != nil {
		m["minPrice"] = *o.MinPrice
	}
	if o.MaxPrice != nil {
		m["maxPrice"] = *o.MaxPrice
	}
	if o.Category != "" {
		m["category"] = o.Category
	}
	if o.SortBy != "" {
		m["sortBy"] = string(o.SortBy)
	}
	return m
}
