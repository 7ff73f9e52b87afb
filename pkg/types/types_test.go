// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchOptions_EffectiveLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, SearchOptions{}.EffectiveLimit())
	assert.Equal(t, 2, SearchOptions{Limit: Int(2)}.EffectiveLimit())
	assert.Equal(t, 0, SearchOptions{Limit: Int(0)}.EffectiveLimit())
}

func TestSearchOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    SearchOptions
		wantErr bool
	}{
		{"empty", SearchOptions{}, false},
		{"sort price", SearchOptions{SortBy: SortPrice}, false},
		{"unknown sort", SearchOptions{SortBy: "newest"}, true},
		{"negative min", SearchOptions{MinPrice: Float(-1)}, true},
		{"negative max", SearchOptions{MaxPrice: Float(-1)}, true},
		{"inverted range", SearchOptions{MinPrice: Float(50), MaxPrice: Float(10)}, true},
		{"equal range", SearchOptions{MinPrice: Float(10), MaxPrice: Float(10)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidOptions))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSearchOptions_CacheParamsOmitsUnset(t *testing.T) {
	assert.Equal(t, map[string]any{"limit": DefaultLimit}, SearchOptions{}.CacheParams())

	m := SearchOptions{Limit: Int(5), Category: "Books"}.CacheParams()
	assert.Equal(t, map[string]any{"limit": 5, "category": "Books"}, m)
}

func TestSearchOptions_CacheParamsDefaultLimitMatchesExplicit(t *testing.T) {
	assert.Equal(t, SearchOptions{}.CacheParams(), SearchOptions{Limit: Int(DefaultLimit)}.CacheParams())
	assert.NotEqual(t, SearchOptions{}.CacheParams(), SearchOptions{Limit: Int(DefaultLimit + 1)}.CacheParams())
}

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, time.Hour, cfg.Search.CacheTTL)
	assert.Equal(t, 2, cfg.Search.MaxRetries)
	assert.Equal(t, RateLimitRule{MaxRequests: 10, Window: time.Minute}, cfg.RateLimits["rapidapi"])
}

func TestConfig_ValidateRejects(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Analysis.Provider = "claude"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.RateLimits["amazon"] = RateLimitRule{MaxRequests: 0, Window: time.Second}
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Search.Timeout = -time.Second
	assert.Error(t, cfg.Validate())
}
