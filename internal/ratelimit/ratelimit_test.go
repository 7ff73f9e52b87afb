// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/gift-engine/pkg/types"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestAllow_WindowOfOne(t *testing.T) {
	clock := newFakeClock()
	l := New(map[string]types.RateLimitRule{
		"amazon": {MaxRequests: 1, Window: time.Second},
	}, WithClock(clock.Now))

	assert.True(t, l.Allow("amazon", ""))
	clock.Advance(500 * time.Millisecond)
	assert.False(t, l.Allow("amazon", ""))

	clock.Advance(501 * time.Millisecond)
	assert.True(t, l.Allow("amazon", ""), "new window after the old one elapsed")
}

func TestAllow_ExactResetBoundaryStillDenied(t *testing.T) {
	clock := newFakeClock()
	l := New(map[string]types.RateLimitRule{
		"amazon": {MaxRequests: 1, Window: time.Second},
	}, WithClock(clock.Now))

	assert.True(t, l.Allow("amazon", ""))
	clock.Advance(time.Second)
	assert.False(t, l.Allow("amazon", ""), "window closes only once now is past resetAt")
}

func TestAllow_CountsUpToMax(t *testing.T) {
	clock := newFakeClock()
	l := New(map[string]types.RateLimitRule{
		"rapidapi": {MaxRequests: 3, Window: time.Minute},
	}, WithClock(clock.Now))

	assert.Equal(t, 3, l.Remaining("rapidapi", ""))
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("rapidapi", ""))
	}
	assert.False(t, l.Allow("rapidapi", ""))
	assert.Equal(t, 0, l.Remaining("rapidapi", ""))
}

func TestAllow_UnknownServiceAlwaysAllowed(t *testing.T) {
	l := New(nil)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("nowhere", ""))
	}
	assert.Equal(t, Unlimited, l.Remaining("nowhere", ""))
	assert.Equal(t, 0, l.Len())
}

func TestAllow_IdentifiersAreIndependent(t *testing.T) {
	l := New(map[string]types.RateLimitRule{
		"openai": {MaxRequests: 1, Window: time.Minute},
	})

	assert.True(t, l.Allow("openai", "user-a"))
	assert.False(t, l.Allow("openai", "user-a"))
	assert.True(t, l.Allow("openai", "user-b"))
}

func TestProjectionsDoNotMutate(t *testing.T) {
	clock := newFakeClock()
	l := New(map[string]types.RateLimitRule{
		"amazon": {MaxRequests: 2, Window: time.Second},
	}, WithClock(clock.Now))

	assert.True(t, l.Allow("amazon", ""))
	for i := 0; i < 5; i++ {
		assert.Equal(t, 1, l.Remaining("amazon", ""))
		assert.Equal(t, time.Second, l.ResetIn("amazon", ""))
	}
	assert.True(t, l.Allow("amazon", ""))
	assert.False(t, l.Allow("amazon", ""))
}

func TestResetIn_NoWindow(t *testing.T) {
	l := New(map[string]types.RateLimitRule{"amazon": {MaxRequests: 1, Window: time.Second}})
	assert.Equal(t, time.Duration(0), l.ResetIn("amazon", ""))
}

func TestSweep_RemovesElapsedOnly(t *testing.T) {
	clock := newFakeClock()
	l := New(map[string]types.RateLimitRule{
		"fast": {MaxRequests: 1, Window: time.Second},
		"slow": {MaxRequests: 1, Window: time.Hour},
	}, WithClock(clock.Now))

	l.Allow("fast", "")
	l.Allow("slow", "")
	clock.Advance(2 * time.Second)

	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())
	assert.False(t, l.Allow("slow", ""), "sweep must not reset an active window")
}

func TestConfigureAndClear(t *testing.T) {
	l := New(nil)
	l.Configure("amazon", types.RateLimitRule{MaxRequests: 1, Window: time.Minute})

	assert.True(t, l.Allow("amazon", ""))
	assert.False(t, l.Allow("amazon", ""))
	l.Clear("amazon", "")
	assert.True(t, l.Allow("amazon", ""))
}

func TestAllow_ConcurrentCountsAreExact(t *testing.T) {
	l := New(map[string]types.RateLimitRule{
		"rapidapi": {MaxRequests: 50, Window: time.Hour},
	})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("rapidapi", "") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}
