// Package ratelimit throttles chat and support submissions per user.
//
// Keys are user IDs only, never user+tab, so clients cannot bypass the
// limit by rotating tab session IDs.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether one more request for key fits in the window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Memory is a sliding-window limiter for a single process.
type Memory struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

// NewMemory returns a limiter allowing limit requests per window.
// Expired keys are evicted every window until ctx is done.
func NewMemory(ctx context.Context, limit int, window time.Duration) *Memory {
	m := &Memory{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
	go m.evict(ctx)
	return m
}

// Allow implements Limiter. It never returns an error.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	recent := m.fresh(m.requests[key], now.Add(-m.window))

	if len(recent) >= m.limit {
		m.requests[key] = recent
		return false, nil
	}

	m.requests[key] = append(recent, now)
	return true, nil
}

func (m *Memory) fresh(times []time.Time, cutoff time.Time) []time.Time {
	var out []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

func (m *Memory) evict(ctx context.Context) {
	ticker := time.NewTicker(m.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-ctx.Done():
			return
		}
	}
}

func (m *Memory) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-m.window)
	for key, times := range m.requests {
		if fresh := m.fresh(times, cutoff); len(fresh) == 0 {
			delete(m.requests, key)
		} else {
			m.requests[key] = fresh
		}
	}
}

// Keys returns the number of tracked keys.
func (m *Memory) Keys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
