package cache

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore using the wall clock.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock returns an empty MemoryStore that reads time from now.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
		now:     now,
	}
}

// Get returns the entry for key, or ErrCacheMiss if absent or expired.
func (s *MemoryStore) Get(_ context.Context, key Key) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key.String()
	entry, ok := s.entries[k]
	if !ok {
		CacheMisses.WithLabelValues(layerMemory).Inc()
		return nil, ErrCacheMiss
	}
	if entry.IsExpiredAt(s.now()) {
		delete(s.entries, k)
		CacheMisses.WithLabelValues(layerMemory).Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(layerMemory).Inc()
	entry.Data = append([]byte(nil), entry.Data...)
	return &entry, nil
}

// Set stores entry under key. Already-expired entries are dropped.
func (s *MemoryStore) Set(_ context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry.IsExpiredAt(now) {
		return nil
	}

	stored := *entry
	stored.Data = append([]byte(nil), entry.Data...)
	if stored.CachedAt.IsZero() {
		stored.CachedAt = now
	}
	s.entries[key.String()] = stored

	return nil
}

// Delete removes key.
func (s *MemoryStore) Delete(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key.String())
	return nil
}

// CompareAndDelete removes key if its live entry holds data.
func (s *MemoryStore) CompareAndDelete(_ context.Context, key Key, data []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key.String()
	entry, ok := s.entries[k]
	if !ok || entry.IsExpiredAt(s.now()) || !bytes.Equal(entry.Data, data) {
		return false, nil
	}
	delete(s.entries, k)
	return true, nil
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
