package delegation

import (
	"context"
	"sync"
	"time"
)

// InMemoryContextStore caches delegation contexts in process memory. Expired
// entries are dropped lazily on read.
type InMemoryContextStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	dc        DelegationContext
	expiresAt time.Time
}

// NewInMemoryContextStore creates an empty in-memory context cache.
func NewInMemoryContextStore() *InMemoryContextStore {
	return &InMemoryContextStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *InMemoryContextStore) Get(_ context.Context, bsn string) (DelegationContext, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[bsn]
	s.mu.RUnlock()
	if !ok {
		return DelegationContext{}, false, nil
	}
	if s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, bsn)
		s.mu.Unlock()
		return DelegationContext{}, false, nil
	}
	return entry.dc, true, nil
}

func (s *InMemoryContextStore) Set(_ context.Context, bsn string, dc DelegationContext, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[bsn] = memoryEntry{dc: dc, expiresAt: s.now().Add(ttl)}
	return nil
}
