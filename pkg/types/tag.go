// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Tag is a user or system label that can be attached to stored products.
type Tag struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Category    string    `json:"category,omitempty" yaml:"category,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Color       string    `json:"color,omitempty" yaml:"color,omitempty"`
	IsSystem    bool      `json:"isSystem" yaml:"is_system"`
	UsageCount  int       `json:"usageCount" yaml:"usage_count"`
	CreatedAt   time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"updated_at"`
}

// TagDetail is a Tag with a sample of the products carrying it.
type TagDetail struct {
	Tag      `yaml:",inline"`
	Products []ProductRecord `json:"products" yaml:"products"`
}

// APIUsage records one call to a metered upstream API.
type APIUsage struct {
	Service      string        `json:"service"`
	Endpoint     string        `json:"endpoint"`
	TokensUsed   int           `json:"tokensUsed"`
	Cost         float64       `json:"cost"`
	ResponseTime time.Duration `json:"responseTime"`
	CreatedAt    time.Time     `json:"createdAt"`
}
