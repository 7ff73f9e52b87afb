// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/gift-engine/pkg/types"
)

// Source names.
const (
	SourceAmazon   = "amazon"
	SourceRapidAPI = "rapidapi"
	SourceCatalog  = "catalog"
)

var (
	// ErrRateLimited reports a request refused by the rate limiter.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidOptions reports a SearchOptions envelope that failed validation.
	ErrInvalidOptions = types.ErrInvalidOptions
)

// Adapter translates free-text queries into products for one external
// source. Search returns an empty list, not an error, when nothing
// matches; transport, auth and decoding failures are errors. GetProduct
// returns nil without error for an id the source does not know.
type Adapter interface {
	Search(ctx context.Context, query string, opts types.SearchOptions) ([]types.StandardizedProduct, error)
	GetProduct(ctx context.Context, id string) (*types.StandardizedProduct, error)
}

// Registry maps source names to adapters. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds or replaces the adapter for name.
func (r *Registry) Register(name string, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[name] = a
}

// Lookup returns the adapter registered under name.
func (r *Registry) Lookup(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	return a, ok
}

// Names returns the registered source names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for n := range r.adapters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func newHTTPClient(cfg types.HTTPConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func joinNonEmpty(parts []string, sep string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
