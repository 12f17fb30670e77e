package throttle

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory sliding-window counter store for
// single-process deployments and tests.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

// NewMemoryStore creates an in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string][]time.Time)}
}

func (s *MemoryStore) RecordIfAllowed(ctx context.Context, key string, at time.Time, window time.Duration, limit int) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.prune(key, at, window)
	if len(kept) >= limit {
		return false, int64(len(kept)), nil
	}
	kept = append(kept, at)
	s.windows[key] = kept
	return true, int64(len(kept)), nil
}

func (s *MemoryStore) CountInWindow(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return int64(len(s.prune(key, now, window))), nil
}

func (s *MemoryStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.windows, key)
	return nil
}

// prune drops timestamps that fell out of the window. Caller holds the lock.
func (s *MemoryStore) prune(key string, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	var kept []time.Time
	for _, ts := range s.windows[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if kept == nil {
		delete(s.windows, key)
	} else {
		s.windows[key] = kept
	}
	return kept
}
