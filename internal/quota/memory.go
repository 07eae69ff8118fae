package quota

import (
	"context"
	"sync"
	"time"
)

type memoryCounter struct {
	value     int64
	expiresAt time.Time
}

// MemoryCounterStore is an in-process CounterStore for standalone mode and
// tests. Counters expire lazily on access.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter
	now      func() time.Time
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		counters: make(map[string]*memoryCounter),
		now:      time.Now,
	}
}

func (s *MemoryCounterStore) IncrementIfBelow(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counter := s.live(key, ttl)
	if counter.value >= limit {
		return counter.value, false, nil
	}
	counter.value++
	return counter.value, true, nil
}

func (s *MemoryCounterStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counter := s.live(key, ttl)
	counter.value++
	return counter.value, nil
}

func (s *MemoryCounterStore) Get(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counter, ok := s.counters[key]
	if !ok || s.now().After(counter.expiresAt) {
		return 0, nil
	}
	return counter.value, nil
}

// live returns the counter for key, replacing it if expired. Caller must
// hold the lock.
func (s *MemoryCounterStore) live(key string, ttl time.Duration) *memoryCounter {
	counter, ok := s.counters[key]
	if !ok || s.now().After(counter.expiresAt) {
		counter = &memoryCounter{expiresAt: s.now().Add(ttl)}
		s.counters[key] = counter
	}
	return counter
}
