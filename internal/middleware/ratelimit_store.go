package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/cultach/cultach-api/internal/cache"
)

// RateStore counts requests per key within a rolling window.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

// memoryRateStore keeps counters in process memory. Expired windows are
// pruned opportunistically on each increment, so no background goroutine
// is needed.
type memoryRateStore struct {
	mu       sync.Mutex
	counters map[string]*rateWindow
	now      func() time.Time
	lastScan time.Time
}

type rateWindow struct {
	hits     int
	deadline time.Time
}

// NewMemoryRateStore returns a process-local RateStore suitable for tests
// and single-instance deployments.
func NewMemoryRateStore() RateStore {
	return &memoryRateStore{
		counters: make(map[string]*rateWindow),
		now:      time.Now,
	}
}

func (s *memoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)

	w := s.counters[key]
	if w == nil || now.After(w.deadline) {
		w = &rateWindow{deadline: now.Add(window)}
		s.counters[key] = w
	}
	w.hits++

	return w.hits, w.deadline.Sub(now), nil
}

// pruneLocked drops expired windows at most once a minute.
func (s *memoryRateStore) pruneLocked(now time.Time) {
	if now.Sub(s.lastScan) < time.Minute {
		return
	}
	s.lastScan = now
	for key, w := range s.counters {
		if now.After(w.deadline) {
			delete(s.counters, key)
		}
	}
}

// cacheRateStore counts through the shared cache.Store, so one Redis (or
// database fallback) instance throttles every replica consistently.
type cacheRateStore struct {
	store cache.Store
}

// NewCacheRateStore adapts a cache store into a RateStore. A nil store
// yields nil so callers can fall through to their own default.
func NewCacheRateStore(store cache.Store) RateStore {
	if store == nil {
		return nil
	}
	return &cacheRateStore{store: store}
}

func (s *cacheRateStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	count, ttl, err := s.store.IncrementWithTTL(ctx, key, window)
	return int(count), ttl, err
}
