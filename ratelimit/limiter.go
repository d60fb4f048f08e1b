// Package ratelimit bounds authentication attempts per key (identity or
// address) in fixed time windows. Counters live behind a narrow Store
// interface: the in-memory store is correct for a single process only, a
// multi-instance deployment must plug in a store with atomic shared
// increments or the limit silently becomes per-instance.
package ratelimit

import (
	"strconv"
	"sync"
	"time"
)

// Store is the counter backend. Incr atomically increments the counter for
// key within the window starting at windowStart and returns the new count.
type Store interface {
	Incr(key string, windowStart time.Time) (int, error)
}

// Limiter allows up to limit attempts per key per window.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewLimiter(store Store, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{store: store, limit: limit, window: window, now: time.Now}
}

// Allow reports whether another attempt for key fits in the current window.
// The attempt is counted whether or not it is allowed.
func (l *Limiter) Allow(key string) (bool, error) {
	windowStart := l.now().Truncate(l.window)
	n, err := l.store.Incr(key, windowStart)
	if err != nil {
		return false, err
	}
	return n <= l.limit, nil
}

// MemStore counts in process memory. Stale windows are dropped as new ones
// open, keeping at most two windows per key alive.
type MemStore struct {
	mu     sync.Mutex
	counts map[string]int
	seen   map[string]time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		counts: make(map[string]int),
		seen:   make(map[string]time.Time),
	}
}

func (s *MemStore) Incr(key string, windowStart time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.seen[key]; !ok || !last.Equal(windowStart) {
		delete(s.counts, key+"@"+strconv.FormatInt(last.Unix(), 10))
		s.seen[key] = windowStart
	}
	k := key + "@" + strconv.FormatInt(windowStart.Unix(), 10)
	s.counts[k]++
	return s.counts[k], nil
}
