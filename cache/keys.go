// Package cache implements C4: an in-process key/value store with per-kind
// TTL and prefix-indexed pattern invalidation. Grounded on the teacher's
// control_plane/resilience/degraded_mode.go (bounded local cache with
// LastAccess-based eviction) and control_plane/store/memory.go (RWMutex map
// store with defensive copies on read).
package cache

import (
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindTask    Kind = "task"
	KindProject Kind = "project"
	KindClient  Kind = "client"
	KindMember  Kind = "member"
	KindTeam    Kind = "team"
	KindDerived Kind = "derived" // calendar ranges, metrics snapshots, etc.
)

// DefaultTTL returns the spec's per-kind TTL (SPEC_FULL.md §3).
func DefaultTTL(kind Kind) time.Duration {
	switch kind {
	case KindTask:
		return 1 * time.Hour
	case KindProject:
		return 24 * time.Hour
	case KindClient:
		return 12 * time.Hour
	case KindMember, KindTeam:
		return 7 * 24 * time.Hour
	default:
		return 30 * time.Minute
	}
}

func EntityKey(kind Kind, id string) string {
	return fmt.Sprintf("%s:%s", kind, id)
}

// CalendarKey derives the range cache key from the request's own window,
// resolving the distilled spec's Open Question: the key always reflects the
// caller's actual start/end, never a hard-coded scratchpad range.
func CalendarKey(start, end time.Time) string {
	return fmt.Sprintf("tasks:calendar:start=%s:end=%s", start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// MatchesPrefix reports whether key is covered by a glob of the form
// "prefix*" or an exact key.
func MatchesPrefix(key, globPrefix string) bool {
	if strings.HasSuffix(globPrefix, "*") {
		return strings.HasPrefix(key, strings.TrimSuffix(globPrefix, "*"))
	}
	return key == globPrefix
}
