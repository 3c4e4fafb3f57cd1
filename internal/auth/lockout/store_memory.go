package lockout

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count     int
	expiresAt time.Time
}

// InMemoryStore keeps failure counters in process memory. Suitable for
// single-instance deployments and tests; distributed deployments should use
// the Redis store so all instances share state.
type InMemoryStore struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]entry
	now     func() time.Time
}

func NewInMemory(window time.Duration) *InMemoryStore {
	return &InMemoryStore{
		window:  window,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *InMemoryStore) WithClock(now func() time.Time) *InMemoryStore {
	s.now = now
	return s
}

func (s *InMemoryStore) Failures(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return 0, nil
	}
	return e.count, nil
}

func (s *InMemoryStore) RecordFailure(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || s.now().After(e.expiresAt) {
		e = entry{expiresAt: s.now().Add(s.window)}
	}
	e.count++
	s.entries[key] = e
	return e.count, nil
}

func (s *InMemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
