package syncqueue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mattertraffic/syncgw/cache"
	"github.com/mattertraffic/syncgw/metrics"
	"github.com/mattertraffic/syncgw/syncerr"
)

// UpstreamOps is the subset of the upstream client the queue worker drives.
// Kept narrow and interface-typed so unit tests can substitute a fake
// instead of a real HTTP client. Data stays map[string]any end to end so the
// queue itself never needs to know the concrete domain type of a kind.
type UpstreamOps interface {
	CreateTaskData(ctx context.Context, data map[string]any) (map[string]any, error)
	UpdateTaskData(ctx context.Context, id string, patch map[string]any) (map[string]any, error)
	ArchiveTaskData(ctx context.Context, id string) error
}

type Queue struct {
	mu         sync.Mutex
	items      []*Item
	signal     chan struct{}
	stop       chan struct{}
	maxSize    int
	maxRetries int
	workerGap  time.Duration

	bus     *Bus
	store   *cache.Store
	ops     UpstreamOps
	metrics *metrics.QueueMetrics
	log     zerolog.Logger
}

func New(store *cache.Store, ops UpstreamOps, rec *metrics.Recorder, log zerolog.Logger) *Queue {
	q := &Queue{
		signal:     make(chan struct{}, 1),
		stop:       make(chan struct{}),
		maxSize:    DefaultMaxSize,
		maxRetries: DefaultMaxRetries,
		workerGap:  DefaultWorkerGap,
		bus:        NewBus(),
		store:      store,
		ops:        ops,
		metrics:    rec.Queue,
		log:        log,
	}
	go q.run()
	return q
}

func (q *Queue) Events() <-chan Event { return q.bus.Subscribe() }

func (q *Queue) Stop() { close(q.stop) }

func (q *Queue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// EnqueueCreate assigns a synthetic temp_-prefixed id, writes the
// optimistic overlay into the cache, and admits a create item.
func (q *Queue) EnqueueCreate(kind EntityKind, data map[string]any) string {
	tempID := "temp_" + uuid.NewString()
	key := cache.EntityKey(cache.Kind(kind), tempID)

	overlay := cloneMap(data)
	overlay["id"] = tempID
	overlay["_temporary"] = true
	overlay["_pendingSync"] = true
	q.store.Set(key, overlay, cache.Kind(kind))

	q.push(&Item{
		ID:         uuid.NewString(),
		Type:       ItemCreate,
		Kind:       kind,
		EntityID:   tempID,
		Data:       data,
		MaxRetries: q.maxRetries,
		CreatedAt:  time.Now(),
	})
	return tempID
}

// EnqueueUpdate merges patch into the cached entity with _pendingSync=true
// and admits an update item.
func (q *Queue) EnqueueUpdate(kind EntityKind, id string, patch map[string]any) error {
	key := cache.EntityKey(cache.Kind(kind), id)
	current, ok := q.store.Get(key)
	if !ok {
		return syncerr.New(syncerr.KindNotFound, "cannot update: entity not cached")
	}
	merged := mergeInto(current, patch)
	merged["_pendingSync"] = true
	q.store.Set(key, merged, cache.Kind(kind))

	q.push(&Item{
		ID:         uuid.NewString(),
		Type:       ItemUpdate,
		Kind:       kind,
		EntityID:   id,
		Data:       patch,
		MaxRetries: q.maxRetries,
		CreatedAt:  time.Now(),
	})
	return nil
}

// EnqueueDelete marks the cached entity _deleted, _pendingSync=true and
// admits a delete item.
func (q *Queue) EnqueueDelete(kind EntityKind, id string) error {
	key := cache.EntityKey(cache.Kind(kind), id)
	current, ok := q.store.Get(key)
	if !ok {
		return syncerr.New(syncerr.KindNotFound, "cannot delete: entity not cached")
	}
	merged := mergeInto(current, map[string]any{"_deleted": true, "_pendingSync": true})
	q.store.Set(key, merged, cache.Kind(kind))

	q.push(&Item{
		ID:         uuid.NewString(),
		Type:       ItemDelete,
		Kind:       kind,
		EntityID:   id,
		MaxRetries: q.maxRetries,
		CreatedAt:  time.Now(),
	})
	return nil
}

// push admits item, evicting the oldest 10% on overflow and emitting
// item:dropped for each eviction (SPEC_FULL.md §4.7).
func (q *Queue) push(item *Item) {
	q.mu.Lock()
	if len(q.items) >= q.maxSize {
		evictCount := q.maxSize / 10
		if evictCount < 1 {
			evictCount = 1
		}
		if evictCount > len(q.items) {
			evictCount = len(q.items)
		}
		dropped := q.items[:evictCount]
		q.items = q.items[evictCount:]
		for _, d := range dropped {
			q.metrics.DecQueued()
			go q.bus.Publish(Event{Type: EventItemDropped, Item: *d})
		}
	}
	q.items = append(q.items, item)
	q.metrics.IncQueued()
	q.mu.Unlock()
	q.wake()
}

// pushDelayed re-admits item after delay, used for retryable-failure
// backoff (teacher: scheduler/queue.go's PushDelayed via time.AfterFunc).
func (q *Queue) pushDelayed(item *Item, delay time.Duration) {
	time.AfterFunc(delay, func() { q.push(item) })
}

func (q *Queue) pop() (*Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// ClearQueue transitions every waiting/enqueued item to a synthetic
// terminal state without rollback — an explicit operator action, not an
// error path.
func (q *Queue) ClearQueue() {
	q.mu.Lock()
	cleared := q.items
	q.items = nil
	q.mu.Unlock()
	for range cleared {
		q.metrics.DecQueued()
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// mergeInto applies patch on top of a cached value of unknown concrete
// shape by round-tripping through JSON into a map, matching the "Partial<T>
// overlay" pattern without requiring every call site to know the concrete
// entity type.
func mergeInto(current any, patch map[string]any) map[string]any {
	b, _ := json.Marshal(current)
	var merged map[string]any
	_ = json.Unmarshal(b, &merged)
	if merged == nil {
		merged = make(map[string]any)
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

// patchEntity merges data onto the cached entity at key (if still present),
// lets fn set the resulting overlay flags on a fresh cache.Overlay, and
// writes both back in a single Set. Centralizing the overlay bookkeeping
// here means compensate and resolveSuccess always assert a complete,
// consistent set of sync-state flags instead of hand-rolling individual map
// keys at each call site.
func (q *Queue) patchEntity(key string, kind EntityKind, data map[string]any, fn func(*cache.Overlay)) {
	current, ok := q.store.Get(key)
	if !ok {
		return
	}
	merged := mergeInto(current, data)
	var o cache.Overlay
	fn(&o)
	for k, v := range o.Patch() {
		merged[k] = v
	}
	q.store.Set(key, merged, cache.Kind(kind))
}
