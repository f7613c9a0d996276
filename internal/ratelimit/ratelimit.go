package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

type RateLimiter interface {
	Wait(ctx context.Context) error
	SetDelay(min, max time.Duration)
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the context-aware wall-clock SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SimpleRateLimiter waits a uniformly random delay from [min, max] before
// every call it guards.
type SimpleRateLimiter struct {
	minDelay time.Duration
	maxDelay time.Duration
	mu       sync.Mutex
	rng      *rand.Rand
	sleep    SleepFunc
}

func NewSimpleRateLimiter(minDelay, maxDelay time.Duration) *SimpleRateLimiter {
	return &SimpleRateLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:    Sleep,
	}
}

// WithSleep replaces the sleep function, mainly for tests.
func (r *SimpleRateLimiter) WithSleep(sleep SleepFunc) *SimpleRateLimiter {
	r.sleep = sleep
	return r
}

func (r *SimpleRateLimiter) Wait(ctx context.Context) error {
	return r.sleep(ctx, r.NextDelay())
}

func (r *SimpleRateLimiter) SetDelay(min, max time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.minDelay = min
	r.maxDelay = max
}

// NextDelay samples the next delay from the configured window.
func (r *SimpleRateLimiter) NextDelay() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxDelay <= r.minDelay {
		return r.minDelay
	}

	delta := r.maxDelay - r.minDelay
	return r.minDelay + time.Duration(r.rng.Int63n(int64(delta)+1))
}

// NoDelay never waits. Useful for tests and for callers that pace themselves.
type NoDelay struct{}

func (NoDelay) Wait(ctx context.Context) error { return ctx.Err() }

func (NoDelay) SetDelay(min, max time.Duration) {}
