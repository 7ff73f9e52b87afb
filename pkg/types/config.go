// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// HTTPConfig holds shared HTTP client settings for outbound requests.
type HTTPConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is sent with every outbound request (e.g. "gift-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// ServerConfig holds the HTTP listener settings for `serve`.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// LogConfig selects the zap encoder and level.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "json" or "console".
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	// Dir holds gift-engine.db and its exports.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// SearchConfig tunes the aggregation coordinator.
type SearchConfig struct {
	// CacheTTL is how long a per-source result list stays cached (default 1h).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl" mapstructure:"cache_ttl"`

	// MaxRetries is the number of retries after a failed adapter call (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RetryBaseDelay is the first backoff delay; it doubles per retry (default 1s).
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay" mapstructure:"retry_base_delay"`

	// MaxQueriesPerSource caps the candidate queries tried per source (default 5).
	MaxQueriesPerSource int `json:"max_queries_per_source" yaml:"max_queries_per_source" mapstructure:"max_queries_per_source"`

	// Timeout bounds one SearchAll call (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// SweepInterval is the period of the cache and rate limiter sweeps (default 5m).
	SweepInterval time.Duration `json:"sweep_interval" yaml:"sweep_interval" mapstructure:"sweep_interval"`
}

// RateLimitRule is a fixed window: at most MaxRequests per Window.
type RateLimitRule struct {
	MaxRequests int           `json:"max_requests" yaml:"max_requests" mapstructure:"max_requests"`
	Window      time.Duration `json:"window" yaml:"window" mapstructure:"window"`
}

// AmazonConfig holds Product Advertising API 5.0 credentials.
type AmazonConfig struct {
	AccessKey   string `json:"access_key,omitempty" yaml:"access_key,omitempty" mapstructure:"access_key"`
	SecretKey   string `json:"secret_key,omitempty" yaml:"secret_key,omitempty" mapstructure:"secret_key"`
	PartnerTag  string `json:"partner_tag,omitempty" yaml:"partner_tag,omitempty" mapstructure:"partner_tag"`
	Host        string `json:"host" yaml:"host" mapstructure:"host"`
	Region      string `json:"region" yaml:"region" mapstructure:"region"`
	Marketplace string `json:"marketplace" yaml:"marketplace" mapstructure:"marketplace"`
}

// RapidAPIConfig holds the real-time Amazon data API settings.
type RapidAPIConfig struct {
	Key     string `json:"key,omitempty" yaml:"key,omitempty" mapstructure:"key"`
	Host    string `json:"host" yaml:"host" mapstructure:"host"`
	Country string `json:"country" yaml:"country" mapstructure:"country"`
}

// CatalogConfig points the offline catalog source at a YAML or JSON file.
type CatalogConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`
}

// SourcesConfig groups per-source settings.
type SourcesConfig struct {
	Amazon   AmazonConfig   `json:"amazon" yaml:"amazon" mapstructure:"amazon"`
	RapidAPI RapidAPIConfig `json:"rapidapi" yaml:"rapidapi" mapstructure:"rapidapi"`
	Catalog  CatalogConfig  `json:"catalog" yaml:"catalog" mapstructure:"catalog"`
}

// AIConfig holds shared settings for a generative AI provider.
type AIConfig struct {
	// Model is the provider model identifier (e.g. "gpt-3.5-turbo").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxTokens caps the completion length.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// Analysis providers.
const (
	ProviderOpenAI    = "openai"
	ProviderGoogleAI  = "googleai"
	ProviderHeuristic = "heuristic"
)

// AnalysisConfig selects and configures the recipient analyzer.
type AnalysisConfig struct {
	// Provider is openai, googleai or heuristic.
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"`

	// CacheTTL is how long an analysis stays cached (default 24h).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl" mapstructure:"cache_ttl"`

	OpenAI   AIConfig `json:"openai" yaml:"openai" mapstructure:"openai"`
	GoogleAI AIConfig `json:"googleai" yaml:"googleai" mapstructure:"googleai"`
}

// Config is the full gift-engine configuration tree.
type Config struct {
	HTTP       HTTPConfig               `json:"http" yaml:"http" mapstructure:"http"`
	Server     ServerConfig             `json:"server" yaml:"server" mapstructure:"server"`
	Log        LogConfig                `json:"log" yaml:"log" mapstructure:"log"`
	Store      StoreConfig              `json:"store" yaml:"store" mapstructure:"store"`
	Search     SearchConfig             `json:"search" yaml:"search" mapstructure:"search"`
	RateLimits map[string]RateLimitRule `json:"rate_limits" yaml:"rate_limits" mapstructure:"rate_limits"`
	Sources    SourcesConfig            `json:"sources" yaml:"sources" mapstructure:"sources"`
	Analysis   AnalysisConfig           `json:"analysis" yaml:"analysis" mapstructure:"analysis"`
}

// DefaultConfig returns a configuration that runs without a config file.
// Sources stay unconfigured until credentials are supplied.
func DefaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Timeout:   15 * time.Second,
			UserAgent: "gift-engine/0.1",
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info", Format: "console"},
		Store:  StoreConfig{Dir: "data"},
		Search: SearchConfig{
			CacheTTL:            time.Hour,
			MaxRetries:          2,
			RetryBaseDelay:      time.Second,
			MaxQueriesPerSource: 5,
			Timeout:             30 * time.Second,
			SweepInterval:       5 * time.Minute,
		},
		RateLimits: map[string]RateLimitRule{
			"amazon":   {MaxRequests: 1, Window: time.Second},
			"rapidapi": {MaxRequests: 10, Window: time.Minute},
			"openai":   {MaxRequests: 60, Window: time.Minute},
			"googleai": {MaxRequests: 60, Window: time.Minute},
		},
		Sources: SourcesConfig{
			Amazon: AmazonConfig{
				Host:        "webservices.amazon.com",
				Region:      "us-east-1",
				Marketplace: "www.amazon.com",
			},
			RapidAPI: RapidAPIConfig{
				Host:    "real-time-amazon-data.p.rapidapi.com",
				Country: "US",
			},
		},
		Analysis: AnalysisConfig{
			Provider: ProviderOpenAI,
			CacheTTL: 24 * time.Hour,
			OpenAI:   AIConfig{Model: "gpt-3.5-turbo", MaxTokens: 1000},
			GoogleAI: AIConfig{Model: "googleai/gemini-2.5-flash", MaxTokens: 1000},
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must be non-negative")
	}
	s := c.Search
	if s.CacheTTL < 0 || s.RetryBaseDelay < 0 || s.Timeout < 0 || s.SweepInterval < 0 {
		return fmt.Errorf("search durations must be non-negative")
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("search.max_retries must be non-negative")
	}
	if s.MaxQueriesPerSource < 0 {
		return fmt.Errorf("search.max_queries_per_source must be non-negative")
	}
	for name, rule := range c.RateLimits {
		if rule.MaxRequests <= 0 || rule.Window <= 0 {
			return fmt.Errorf("rate_limits.%s: max_requests and window must be positive", name)
		}
	}
	switch c.Analysis.Provider {
	case ProviderOpenAI, ProviderGoogleAI, ProviderHeuristic:
	default:
		return fmt.Errorf("analysis.provider %q is not one of openai, googleai, heuristic", c.Analysis.Provider)
	}
	if c.Analysis.CacheTTL < 0 {
		return fmt.Errorf("analysis.cache_ttl must be non-negative")
	}
	return nil
}
