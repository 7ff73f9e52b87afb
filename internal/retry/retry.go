// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retry runs an operation under a bounded retry policy with
// exponential backoff.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

const (
	defaultMaxRetries = 2
	defaultBaseDelay  = time.Second
)

// WaitFunc blocks for d or until ctx is done. Tests substitute one that
// records delays instead of sleeping.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Policy bounds an operation to 1+MaxRetries attempts. The delay before
// retry n is BaseDelay * 2^(n-1): with the defaults that is 1s, then 2s.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Wait       WaitFunc
}

// DefaultPolicy returns 2 retries (3 attempts) starting at 1s.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: defaultMaxRetries, BaseDelay: defaultBaseDelay}
}

// Attempts returns the total attempt count the policy allows.
func (p Policy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// Delay returns the backoff before the given retry (1-based).
func (p Policy) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	return time.Duration(math.Pow(2, float64(retry-1))) * p.BaseDelay
}

// Do calls fn until it succeeds or the policy's attempts are spent.
// onRetry, when non-nil, is told about each scheduled retry before the
// wait. If the context is cancelled during a wait, Do returns ctx.Err().
// After the last failed attempt the error is wrapped with the attempt
// count.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error), onRetry func(attempt int, delay time.Duration, err error)) (T, error) {
	var zero T
	wait := p.Wait
	if wait == nil {
		wait = sleep
	}
	attempts := p.Attempts()

	for attempt := 1; ; attempt++ {
		v, err := fn(ctx, attempt)
		if err == nil {
			return v, nil
		}
		if attempt >= attempts {
			return zero, fmt.Errorf("after %d attempts: %w", attempt, err)
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		delay := p.Delay(attempt)
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
		if err := wait(ctx, delay); err != nil {
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
