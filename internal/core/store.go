package core

// store.go implements the generic TTL-keyed cache backing both the dataset
// store and the result store.
//
// Entries are visible iff now < expiresAt. Expiry is absolute from creation
// and is never refreshed on access, so a repeatedly-read entry still dies at
// its original deadline. Get enforces expiry independently of the reaper:
// the reaper only bounds memory growth, never visibility.
//
// A single RWMutex per store serializes map mutation. No operation performs
// I/O while holding the lock, and sweep cost is bounded by entry count.

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
)

// entry wraps a stored value with its lifetime bounds.
type entry[T any] struct {
	value     T
	createdAt time.Time
	expiresAt time.Time
}

// StoreStats is a snapshot of a store's access counters.
type StoreStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Store is a concurrent-safe in-memory cache mapping generated opaque
// identifiers to values with a fixed time-to-live.
type Store[T any] struct {
	ttl time.Duration
	now func() time.Time // overridable in tests

	mu      sync.RWMutex
	entries map[string]entry[T]
	stats   StoreStats
}

// NewStore creates a store whose entries live for ttl after insertion.
func NewStore[T any](ttl time.Duration) *Store[T] {
	return &Store[T]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry[T]),
	}
}

// newID generates an opaque 32-character hex identifier.
func newID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// Put inserts a value under a fresh identifier and returns it.
// It never blocks on I/O.
func (s *Store[T]) Put(v T) string {
	id := newID()
	now := s.now()

	s.mu.Lock()
	s.entries[id] = entry[T]{
		value:     v,
		createdAt: now,
		expiresAt: now.Add(s.ttl),
	}
	s.mu.Unlock()

	return id
}

// Get returns the value for id if it is present and unexpired. An absent,
// expired, or evicted entry is reported identically as a miss. An expired
// entry encountered here is evicted eagerly.
func (s *Store[T]) Get(id string) (T, bool) {
	var zero T
	now := s.now()

	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		s.mu.Lock()
		s.stats.Misses++
		s.mu.Unlock()
		return zero, false
	}

	if !now.Before(e.expiresAt) {
		s.mu.Lock()
		// Recheck under the write lock; a sweep may have won the race.
		if cur, still := s.entries[id]; still && !now.Before(cur.expiresAt) {
			delete(s.entries, id)
			s.stats.Evictions++
		}
		s.stats.Misses++
		s.mu.Unlock()
		return zero, false
	}

	s.mu.Lock()
	s.stats.Hits++
	s.mu.Unlock()
	return e.value, true
}

// EvictExpired removes every entry whose deadline is at or before now and
// returns the number removed. Safe to call concurrently with Get and Put.
func (s *Store[T]) EvictExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	s.stats.Evictions += uint64(removed)
	return removed
}

// Len returns the number of physically present entries, expired or not.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats returns a snapshot of the store's access counters.
func (s *Store[T]) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}
