// Package ratelimit implements fixed-window counters keyed by user and action.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"social-backend/internal/clock"
)

// Limiter reports whether one more event fits under limit within window,
// and how long until the window resets.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration)
}

// sweepInterval bounds how often expired buckets are dropped
const sweepInterval = time.Minute

// MemoryLimiter keeps buckets in process memory. Expired buckets are swept
// at most once per sweepInterval.
type MemoryLimiter struct {
	mu        sync.Mutex
	clock     clock.Clock
	store     map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	count   int
	resetAt time.Time
	window  time.Duration
}

func NewMemory(clk clock.Clock) *MemoryLimiter {
	return &MemoryLimiter{clock: clk, store: make(map[string]*bucket), lastSweep: clk.Now()}
}

func (m *MemoryLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	m.sweep(now)

	b, ok := m.store[key]
	if !ok || !now.Before(b.resetAt) || b.window != window {
		b = &bucket{count: 0, resetAt: now.Add(window), window: window}
		m.store[key] = b
	}

	if b.count >= limit {
		return false, b.resetAt.Sub(now)
	}

	b.count++
	return true, b.resetAt.Sub(now)
}

func (m *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < sweepInterval {
		return
	}
	m.lastSweep = now
	for key, b := range m.store {
		if !now.Before(b.resetAt) {
			delete(m.store, key)
		}
	}
}

// Len returns the number of live buckets
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store)
}
