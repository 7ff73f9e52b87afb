// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit implements an in-process fixed-window request gate
// keyed by (service, identifier).
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/gift-engine/pkg/types"
)

// Unlimited is reported by Remaining for services without a rule.
const Unlimited = -1

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per (service, identifier) in fixed windows. A
// window opens on the first request after the previous one elapsed. It is
// safe for concurrent use; every check-and-increment happens under one
// lock.
type Limiter struct {
	mu      sync.Mutex
	rules   map[string]types.RateLimitRule
	entries map[string]*entry
	now     func() time.Time
	log     *zap.SugaredLogger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now. Tests use it to step through windows.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithLogger sets the logger used for denials and sweeps.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(l *Limiter) {
		if log != nil {
			l.log = log
		}
	}
}

// New returns a Limiter enforcing rules, keyed by service name.
func New(rules map[string]types.RateLimitRule, opts ...Option) *Limiter {
	l := &Limiter{
		rules:   make(map[string]types.RateLimitRule, len(rules)),
		entries: make(map[string]*entry),
		now:     time.Now,
		log:     zap.NewNop().Sugar(),
	}
	for name, r := range rules {
		l.rules[name] = r
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Configure sets or replaces the rule for service. Existing windows keep
// their counts.
func (l *Limiter) Configure(service string, rule types.RateLimitRule) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rules[service] = rule
}

func key(service, identifier string) string {
	if identifier == "" {
		return service
	}
	return service + ":" + identifier
}

// Allow reports whether one more request for (service, identifier) fits in
// the current window and, if so, counts it. Services without a rule are
// always allowed.
func (l *Limiter) Allow(service, identifier string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	rule, ok := l.rules[service]
	if !ok {
		return true
	}

	now := l.now()
	k := key(service, identifier)
	e, ok := l.entries[k]
	if !ok || now.After(e.resetAt) {
		l.entries[k] = &entry{count: 1, resetAt: now.Add(rule.Window)}
		return true
	}
	if e.count < rule.MaxRequests {
		e.count++
		return true
	}

	l.log.Warnw("rate limit exceeded", "service", service, "identifier", identifier,
		"reset_in", e.resetAt.Sub(now))
	return false
}

// Remaining returns how many requests the current window still admits for
// (service, identifier), or Unlimited for a service without a rule. It
// does not count a request.
func (l *Limiter) Remaining(service, identifier string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	rule, ok := l.rules[service]
	if !ok {
		return Unlimited
	}
	e, ok := l.entries[key(service, identifier)]
	if !ok || l.now().After(e.resetAt) {
		return rule.MaxRequests
	}
	if n := rule.MaxRequests - e.count; n > 0 {
		return n
	}
	return 0
}

// ResetIn returns the time until the current window for (service,
// identifier) closes, or zero when no window is active.
func (l *Limiter) ResetIn(service, identifier string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key(service, identifier)]
	if !ok {
		return 0
	}
	if d := e.resetAt.Sub(l.now()); d > 0 {
		return d
	}
	return 0
}

// Clear drops the window for (service, identifier).
func (l *Limiter) Clear(service, identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key(service, identifier))
}

// Sweep removes entries whose window has elapsed and returns how many were
// removed. It never changes an Allow outcome.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for k, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked windows.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Run sweeps every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := l.Sweep(); n > 0 {
				l.log.Debugw("rate limiter sweep", "removed", n)
			}
		}
	}
}
