package cache

import "strings"

// Stats matches SPEC_FULL.md §4.4's contract. MemoryUsed/MemoryPeak are
// best-effort estimates derived from marshalled value sizes (Open Question
// resolution: this cache is in-process, not a Redis-like remote store, so
// there is no real allocator/RSS figure to report).
type Stats struct {
	TotalKeys     int
	KeysByPrefix  map[string]int
	MemoryUsed    int
	MemoryPeak    int
	MaxMemory     int
	ExpiredCount  int64
}

func (s *Store) Stats(maxMemory int) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byPrefix := make(map[string]int)
	for key := range s.entries {
		if i := strings.IndexByte(key, ':'); i >= 0 {
			byPrefix[key[:i]]++
		} else {
			byPrefix[key]++
		}
	}

	return Stats{
		TotalKeys:    len(s.entries),
		KeysByPrefix: byPrefix,
		MemoryUsed:   s.totalSizeLocked(),
		MemoryPeak:   s.memoryPeak,
		MaxMemory:    maxMemory,
		ExpiredCount: s.expiredCount,
	}
}
