package cache

import (
	"strings"
	"sync"
	"time"
)

// sweepThreshold is the entry count past which an insert triggers a sweep of
// already-expired entries.
const sweepThreshold = 1000

type localEntry struct {
	value     []byte
	expiresAt time.Time
}

// localStore is the always-present in-memory fallback store. Entries carry
// their own expiry; expired entries are evicted lazily on read and in bulk
// once the store grows past sweepThreshold.
type localStore struct {
	mu      sync.RWMutex
	entries map[string]localEntry
}

func newLocalStore() *localStore {
	return &localStore{entries: make(map[string]localEntry)}
}

func (s *localStore) get(key string) ([]byte, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent set may have
		// refreshed the entry.
		if cur, ok := s.entries[key]; ok && time.Now().After(cur.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (s *localStore) set(key string, value []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = localEntry{value: value, expiresAt: time.Now().Add(ttl)}

	if len(s.entries) > sweepThreshold {
		now := time.Now()
		for k, e := range s.entries {
			if now.After(e.expiresAt) {
				delete(s.entries, k)
			}
		}
	}
}

func (s *localStore) delete(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return 0
	}
	delete(s.entries, key)
	return 1
}

func (s *localStore) deleteByPrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

func (s *localStore) clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	s.entries = make(map[string]localEntry)
	return n
}

func (s *localStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
