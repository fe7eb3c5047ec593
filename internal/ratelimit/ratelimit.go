package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is the narrow capability the HTTP layer depends on: one
// check-and-increment per key per call. Implementations count requests in
// fixed windows; a request either fits the current window or it does not.
// The in-memory implementation is process-local (each instance enforces
// its limit independently); the redis implementation coordinates across
// instances.
type Limiter interface {
	// Allow records one request for key and reports whether it fits
	// inside the current window.
	Allow(ctx context.Context, key string) (bool, error)
}

type window struct {
	start time.Time
	count int
}

// Memory is a process-local fixed-window limiter. Counters live in a
// mutex-guarded map; the window resets at its boundary, no sliding
// average. Stale windows are dropped by a background sweep so drive-by
// keys cannot grow the map forever.
type Memory struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

// NewMemory creates a fixed-window limiter allowing limit requests per
// period per key.
func NewMemory(limit int, period time.Duration) *Memory {
	m := &Memory{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
	go m.sweep()
	return m
}

// Allow implements Limiter. The read-modify-write runs under the mutex,
// so concurrent requests for one key can never lose an increment.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || now.Sub(w.start) >= m.period {
		m.windows[key] = &window{start: now, count: 1}
		return m.limit >= 1, nil
	}

	w.count++
	return w.count <= m.limit, nil
}

func (m *Memory) sweep() {
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := m.now().Add(-m.period)
		m.mu.Lock()
		for key, w := range m.windows {
			if w.start.Before(cutoff) {
				delete(m.windows, key)
			}
		}
		m.mu.Unlock()
	}
}
