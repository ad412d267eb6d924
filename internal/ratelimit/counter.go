package ratelimit

import (
	"context"
	"sync"
	"time"
)

// CounterStore is the shared counter capability behind the rate limiter.
// Increment arms the window expiry only on the first increment, so the
// window slides from first use rather than a fixed clock boundary.
type CounterStore interface {
	Get(ctx context.Context, key string) (int64, error)
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

type memoryCounter struct {
	count     int64
	expiresAt time.Time
}

// MemoryCounterStore is a mutex-guarded counter map for single-instance
// deployments.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter
}

// NewMemoryCounterStore creates an empty in-process counter store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counters: make(map[string]*memoryCounter)}
}

func (s *MemoryCounterStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counter, ok := s.counters[key]
	if !ok {
		return 0, nil
	}
	if time.Now().After(counter.expiresAt) {
		delete(s.counters, key)
		return 0, nil
	}
	return counter.count, nil
}

func (s *MemoryCounterStore) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counter, ok := s.counters[key]
	if !ok || time.Now().After(counter.expiresAt) {
		counter = &memoryCounter{expiresAt: time.Now().Add(window)}
		s.counters[key] = counter
	}
	counter.count++
	return counter.count, nil
}
