// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the gift-engine
// aggregation layer: products, search options, recipient analysis, tags
// and configuration.
package types

import "time"

// DefaultCurrency is applied to products whose source does not report one.
const DefaultCurrency = "USD"

// StandardizedProduct is the canonical representation of one product from
// any source. Optional commerce fields are pointers so that "absent" and
// "zero" stay distinguishable.
type StandardizedProduct struct {
	// ExternalID is the source-scoped identifier (ASIN, catalog id). It may
	// be empty for sources without stable ids.
	ExternalID string `json:"externalId" yaml:"external_id"`

	// Source names the adapter that produced the product (e.g. "amazon").
	Source string `json:"source" yaml:"source"`

	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty" yaml:"image_url,omitempty"`

	// ProductURL is the resolvable product link. A product without one is
	// invalid.
	ProductURL string `json:"productUrl" yaml:"product_url"`

	Price       *float64 `json:"price,omitempty" yaml:"price,omitempty"`
	Currency    string   `json:"currency" yaml:"currency"`
	Rating      *float64 `json:"rating,omitempty" yaml:"rating,omitempty"`
	ReviewCount *int     `json:"reviewCount,omitempty" yaml:"review_count,omitempty"`
	InStock     *bool    `json:"inStock,omitempty" yaml:"in_stock,omitempty"`

	// Availability is the free-text availability message, when the source
	// reports one.
	Availability string `json:"availability,omitempty" yaml:"availability,omitempty"`

	Tags       []string `json:"tags" yaml:"tags"`
	Categories []string `json:"categories" yaml:"categories"`
}

// ProductRecord is a StandardizedProduct as held by the persistence layer.
type ProductRecord struct {
	ID string `json:"id" yaml:"id"`

	StandardizedProduct `yaml:",inline"`

	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updated_at"`
}

// Float returns a pointer to v. Adapters use it to fill optional fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
