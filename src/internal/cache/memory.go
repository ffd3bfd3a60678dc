package cache

import (
	"context"
	"sync"
	"time"

	"github.com/coder/quartz"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// MemoryStore is a mutex-guarded in-memory Store. Nothing runs in the
// background; dead entries stay until swept or touched.
type MemoryStore[V any] struct {
	mu    sync.Mutex
	m     map[string]entry[V]
	clock quartz.Clock
}

func NewMemoryStore[V any](clock quartz.Clock) *MemoryStore[V] {
	return &MemoryStore[V]{
		m:     make(map[string]entry[V]),
		clock: clock,
	}
}

func (s *MemoryStore[V]) live(e entry[V]) bool {
	return e.expiresAt.After(s.clock.Now())
}

func (s *MemoryStore[V]) Put(_ context.Context, key string, value V, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = entry[V]{value: value, expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore[V]) PutIfAbsent(_ context.Context, key string, value V, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.m[key]; ok && s.live(e) {
		return false, nil
	}
	s.m[key] = entry[V]{value: value, expiresAt: expiresAt}
	return true, nil
}

func (s *MemoryStore[V]) GetIfLive(_ context.Context, key string) (V, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[key]
	if !ok {
		var zero V
		return zero, false, nil
	}
	if !s.live(e) {
		delete(s.m, key)
		var zero V
		return zero, false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore[V]) DeleteIfPresent(_ context.Context, key string) (V, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[key]
	if !ok {
		var zero V
		return zero, false, nil
	}
	delete(s.m, key)
	if !s.live(e) {
		var zero V
		return zero, false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore[V]) SweepExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, e := range s.m {
		if !s.live(e) {
			delete(s.m, key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore[V]) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m), nil
}
