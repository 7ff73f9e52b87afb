// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics bundles the Prometheus collectors for gift-engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Source request outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
)

// Metrics holds collectors registered on a dedicated registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Registry            *prometheus.Registry
	SourceRequestsTotal *prometheus.CounterVec
	SourceDuration      *prometheus.HistogramVec
	CacheLookupsTotal   *prometheus.CounterVec
	RateLimitDenials    *prometheus.CounterVec
	RetriesTotal        *prometheus.CounterVec
	PersistFailures     *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
}

// New constructs and registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	sourceRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gift_engine_source_requests_total",
			Help: "Adapter calls by source and outcome.",
		},
		[]string{"source", "outcome"},
	)
	sourceDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gift_engine_source_request_duration_seconds",
			Help:    "Adapter call latency, retries included.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)
	cacheLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gift_engine_cache_lookups_total",
			Help: "Cache lookups by cache and result.",
		},
		[]string{"cache", "result"},
	)
	denials := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gift_engine_rate_limit_denials_total",
			Help: "Requests refused by the rate limiter.",
		},
		[]string{"service"},
	)
	retries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gift_engine_retries_total",
			Help: "Retries scheduled after failed adapter calls.",
		},
		[]string{"source"},
	)
	persistFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gift_engine_persist_failures_total",
			Help: "Product upserts that failed.",
		},
		[]string{"source"},
	)
	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gift_engine_http_requests_total",
			Help: "HTTP requests served.",
		},
		[]string{"method", "route", "status"},
	)

	registry.MustRegister(sourceRequests, sourceDuration, cacheLookups, denials,
		retries, persistFailures, httpRequests)

	return &Metrics{
		Registry:            registry,
		SourceRequestsTotal: sourceRequests,
		SourceDuration:      sourceDuration,
		CacheLookupsTotal:   cacheLookups,
		RateLimitDenials:    denials,
		RetriesTotal:        retries,
		PersistFailures:     persistFailures,
		HTTPRequestsTotal:   httpRequests,
	}
}

// ObserveSource records one adapter call and its latency.
func (m *Metrics) ObserveSource(source, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.SourceRequestsTotal.WithLabelValues(source, outcome).Inc()
	m.SourceDuration.WithLabelValues(source).Observe(d.Seconds())
}

// IncCache counts a cache hit or miss.
func (m *Metrics) IncCache(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

// IncDenied counts a rate-limit denial.
func (m *Metrics) IncDenied(service string) {
	if m == nil {
		return
	}
	m.RateLimitDenials.WithLabelValues(service).Inc()
}

// IncRetry counts a scheduled retry.
func (m *Metrics) IncRetry(source string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(source).Inc()
}

// IncPersistFailure counts a failed upsert.
func (m *Metrics) IncPersistFailure(source string) {
	if m == nil {
		return
	}
	m.PersistFailures.WithLabelValues(source).Inc()
}

// IncHTTP counts a served HTTP request.
func (m *Metrics) IncHTTP(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
