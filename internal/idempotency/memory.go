package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and local runs without a
// Redis instance. Entries expire lazily on read.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Claim(_ context.Context, key string, entry Entry, ttl time.Duration) (*Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[key]; ok && existing.expiresAt.After(s.now()) {
		e := existing.entry
		return &e, false, nil
	}
	s.entries[key] = memoryEntry{entry: entry, expiresAt: s.now().Add(ttl)}
	return nil, true, nil
}

func (s *MemoryStore) Update(_ context.Context, key string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entries[key]
	if !ok {
		existing.expiresAt = s.now().Add(TTLIdempotencyKey)
	}
	existing.entry = entry
	s.entries[key] = existing
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entries[key]
	if !ok || !existing.expiresAt.After(s.now()) {
		return nil, nil
	}
	e := existing.entry
	return &e, nil
}

// Len reports the number of live entries. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.entries {
		if e.expiresAt.After(s.now()) {
			n++
		}
	}
	return n
}

var _ Store = (*MemoryStore)(nil)
