// Package ratelimit throttles outgoing vendor requests per endpoint class.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Endpoint classes used by the degiro client.
const (
	ClassLogin     = "login"
	ClassTrading   = "trading"
	ClassOrder     = "trading:order"
	ClassReporting = "reporting"
	ClassProduct   = "product"
	ClassAccount   = "pa"
	ClassQuotecast = "quotecast"
	classGeneral   = "general"
)

// RateLimiter is implemented by TokenBucket and SlidingWindow.
type RateLimiter interface {
	Wait(ctx context.Context) error
	Allow() bool
	Remaining() int
	ResetTime() time.Time
}

// TokenBucket refills continuously at ratePerSec tokens per second up to capacity.
type TokenBucket struct {
	capacity   float64
	tokens     float64
	ratePerSec float64
	lastRefill time.Time
	mu         sync.Mutex
}

func NewTokenBucket(capacity int, ratePerSec float64) *TokenBucket {
	return &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		ratePerSec: ratePerSec,
		lastRefill: time.Now(),
	}
}

// caller must hold mu
func (tb *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	tb.tokens += elapsed * tb.ratePerSec
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill(time.Now())
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if tb.Allow() {
			return nil
		}
		tb.mu.Lock()
		wait := 100 * time.Millisecond
		if tb.ratePerSec > 0 {
			wait = time.Duration((1 - tb.tokens) / tb.ratePerSec * float64(time.Second))
		}
		tb.mu.Unlock()
		if wait <= 0 {
			wait = time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (tb *TokenBucket) Remaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill(time.Now())
	return int(tb.tokens)
}

// ResetTime reports when the bucket will be full again.
func (tb *TokenBucket) ResetTime() time.Time {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	now := time.Now()
	tb.refill(now)
	if tb.tokens >= tb.capacity || tb.ratePerSec <= 0 {
		return now
	}
	missing := tb.capacity - tb.tokens
	return now.Add(time.Duration(missing / tb.ratePerSec * float64(time.Second)))
}

// SlidingWindow allows at most limit requests in any window.
type SlidingWindow struct {
	limit    int
	window   time.Duration
	requests []time.Time
	mu       sync.Mutex
}

func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{limit: limit, window: window}
}

// caller must hold mu
func (sw *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}
	sw.requests = sw.requests[i:]
}

func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	now := time.Now()
	sw.prune(now)
	if len(sw.requests) >= sw.limit {
		return false
	}
	sw.requests = append(sw.requests, now)
	return true
}

func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for {
		if sw.Allow() {
			return nil
		}
		wait := time.Until(sw.ResetTime())
		if wait <= 0 {
			wait = 10 * time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (sw *SlidingWindow) Remaining() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.prune(time.Now())
	if n := sw.limit - len(sw.requests); n > 0 {
		return n
	}
	return 0
}

// ResetTime reports when the oldest request in the window expires.
func (sw *SlidingWindow) ResetTime() time.Time {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if len(sw.requests) == 0 {
		return time.Now()
	}
	return sw.requests[0].Add(sw.window)
}

// Manager holds one limiter per endpoint class. Unknown classes share the
// general limiter.
type Manager struct {
	limiters map[string]RateLimiter
	mu       sync.RWMutex
}

// NewManager returns a manager with conservative defaults. The web trader
// itself issues a handful of requests per second, so these stay close to that.
func NewManager() *Manager {
	return &Manager{limiters: map[string]RateLimiter{
		ClassLogin:     NewSlidingWindow(5, time.Minute),
		ClassTrading:   NewTokenBucket(10, 5),
		ClassOrder:     NewTokenBucket(5, 2),
		ClassReporting: NewSlidingWindow(30, 10*time.Second),
		ClassProduct:   NewTokenBucket(10, 5),
		ClassAccount:   NewTokenBucket(5, 2),
		ClassQuotecast: NewTokenBucket(20, 10),
		classGeneral:   NewTokenBucket(20, 10),
	}}
}

// NewUniformManager gives every class its own token bucket with the same
// capacity and refill rate.
func NewUniformManager(capacity int, ratePerSec float64) *Manager {
	m := &Manager{limiters: make(map[string]RateLimiter)}
	for _, class := range []string{ClassLogin, ClassTrading, ClassOrder, ClassReporting, ClassProduct, ClassAccount, ClassQuotecast, classGeneral} {
		m.limiters[class] = NewTokenBucket(capacity, ratePerSec)
	}
	return m
}

// Set replaces the limiter for class.
func (m *Manager) Set(class string, l RateLimiter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[class] = l
}

func (m *Manager) Limiter(class string) RateLimiter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l, ok := m.limiters[class]; ok {
		return l
	}
	return m.limiters[classGeneral]
}

func (m *Manager) Wait(ctx context.Context, class string) error {
	l := m.Limiter(class)
	if l == nil {
		return nil
	}
	return l.Wait(ctx)
}

func (m *Manager) Allow(class string) bool {
	l := m.Limiter(class)
	return l == nil || l.Allow()
}

func (m *Manager) Remaining(class string) int {
	l := m.Limiter(class)
	if l == nil {
		return -1
	}
	return l.Remaining()
}
