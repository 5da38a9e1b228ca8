package cache

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

type entry struct {
	value      any
	expiresAt  time.Time
	sizeBytes  int
}

// Store is the authoritative in-process cache. All methods are safe for
// concurrent use. Pattern invalidation walks a colon-boundary prefix index
// rather than the full keyspace, per SPEC_FULL.md §4.4's O(matches)
// invariant.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	index   map[string]map[string]struct{} // colon-prefix -> member keys

	expiredCount int64
	memoryPeak   int
}

func New() *Store {
	return &Store{
		entries: make(map[string]entry),
		index:   make(map[string]map[string]struct{}),
	}
}

func colonPrefixes(key string) []string {
	var out []string
	for i, c := range key {
		if c == ':' {
			out = append(out, key[:i+1])
		}
	}
	return out
}

func estimateSize(value any) int {
	b, err := json.Marshal(value)
	if err != nil {
		return 0
	}
	return len(b)
}

// Get returns the value and true on a live hit; expired entries are treated
// as misses and lazily evicted.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		s.mu.Lock()
		s.deleteLocked(key)
		s.expiredCount++
		s.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set always resets the key's TTL to kind's default (SPEC_FULL.md §4.4 invariant).
func (s *Store) Set(key string, value any, kind Kind) {
	s.SetTTL(key, value, DefaultTTL(kind))
}

func (s *Store) SetTTL(key string, value any, ttl time.Duration) {
	size := estimateSize(value)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[key]; !exists {
		for _, p := range colonPrefixes(key) {
			bucket, ok := s.index[p]
			if !ok {
				bucket = make(map[string]struct{})
				s.index[p] = bucket
			}
			bucket[key] = struct{}{}
		}
	}
	s.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl), sizeBytes: size}
	if total := s.totalSizeLocked(); total > s.memoryPeak {
		s.memoryPeak = total
	}
}

// Del is idempotent: deleting an absent key is a no-op, not an error.
func (s *Store) Del(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(key)
}

func (s *Store) deleteLocked(key string) {
	if _, ok := s.entries[key]; !ok {
		return
	}
	delete(s.entries, key)
	for _, p := range colonPrefixes(key) {
		if bucket, ok := s.index[p]; ok {
			delete(bucket, key)
			if len(bucket) == 0 {
				delete(s.index, p)
			}
		}
	}
}

// InvalidatePattern deletes every key matching globPrefix ("prefix*" or an
// exact key) and returns how many were removed. When the pattern is
// colon-aligned (ends in "prefix:*") the prefix index answers the query in
// O(matches); otherwise it falls back to a full scan, which no caller in
// this system's key scheme actually needs.
func (s *Store) InvalidatePattern(globPrefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !strings.HasSuffix(globPrefix, "*") {
		if _, ok := s.entries[globPrefix]; ok {
			s.deleteLocked(globPrefix)
			return 1
		}
		return 0
	}

	prefix := strings.TrimSuffix(globPrefix, "*")
	if bucket, ok := s.index[prefix]; ok {
		keys := make([]string, 0, len(bucket))
		for k := range bucket {
			keys = append(keys, k)
		}
		for _, k := range keys {
			s.deleteLocked(k)
		}
		return len(keys)
	}

	// Not colon-aligned: bounded fallback scan.
	var matched []string
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			matched = append(matched, k)
		}
	}
	for _, k := range matched {
		s.deleteLocked(k)
	}
	return len(matched)
}

func (s *Store) totalSizeLocked() int {
	total := 0
	for _, e := range s.entries {
		total += e.sizeBytes
	}
	return total
}
