package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	token    string
	expires  time.Time
	consumed string
}

// MemoryStore is an in-process Store with TTL expiry. Suitable for
// single-instance deployments and tests.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates a store whose sessions expire after ttl of
// inactivity.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, providerID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[providerID]
	if !ok {
		e = &memoryEntry{}
		s.entries[providerID] = e
	}
	e.token = token
	e.expires = s.now().Add(s.ttl)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, providerID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[providerID]
	if !ok || e.token == "" {
		return "", false, nil
	}
	if s.now().After(e.expires) {
		e.token = ""
		return "", false, nil
	}
	return e.token, true, nil
}

func (s *MemoryStore) Consume(_ context.Context, providerID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[providerID]
	if !ok {
		e = &memoryEntry{}
		s.entries[providerID] = e
	}
	e.token = ""
	e.consumed = token
	return nil
}

func (s *MemoryStore) Consumed(_ context.Context, providerID, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[providerID]
	if !ok || token == "" {
		return false, nil
	}
	return e.consumed == token, nil
}
