package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupWindow bounds how long a delivered event id is remembered.
const DedupWindow = 24 * time.Hour

// Deduper tracks seen webhook event ids so a redelivery within the window is
// acknowledged but not reprocessed. Backed by Redis when configured, falling
// back to an in-memory TTL map otherwise — the pack's "optional remote
// backend, in-memory fallback" idempotency-store idiom (teacher:
// idempotency/store.go's Backend interface + sync.Map fallback), simplified
// here to a plain seen/not-seen check since a webhook delivery has no result
// body to cache, unlike the teacher's two-phase LOCKED/RESULT scheme.
type Deduper struct {
	redis *redis.Client

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewDeduper(client *redis.Client) *Deduper {
	return &Deduper{redis: client, seen: make(map[string]time.Time)}
}

// SeenOrMark reports whether eventID was already recorded within the dedup
// window, and if not, records it now.
func (d *Deduper) SeenOrMark(ctx context.Context, eventID string) bool {
	if d.redis != nil {
		return d.seenOrMarkRedis(ctx, eventID)
	}
	return d.seenOrMarkMemory(eventID)
}

func (d *Deduper) seenOrMarkRedis(ctx context.Context, eventID string) bool {
	key := "webhook:seen:" + eventID
	ok, err := d.redis.SetNX(ctx, key, "1", DedupWindow).Result()
	if err != nil {
		// Redis unavailable: fail open rather than let a transient outage
		// reprocess every delivery as a dropped request (I5 only bars
		// synchronous upstream calls, not best-effort dedup).
		return d.seenOrMarkMemory(eventID)
	}
	return !ok
}

func (d *Deduper) seenOrMarkMemory(eventID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	for id, at := range d.seen {
		if now.Sub(at) > DedupWindow {
			delete(d.seen, id)
		}
	}

	if at, ok := d.seen[eventID]; ok && now.Sub(at) <= DedupWindow {
		return true
	}
	d.seen[eventID] = now
	return false
}
