package syncqueue

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/mattertraffic/syncgw/cache"
	"github.com/mattertraffic/syncgw/metrics"
	"github.com/mattertraffic/syncgw/syncerr"
)

type fakeOps struct {
	mu         sync.Mutex
	createdIDs []string
	failUntil  int
	callCount  int
}

func (f *fakeOps) CreateTaskData(ctx context.Context, data map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	if f.callCount <= f.failUntil {
		return nil, syncerr.New(syncerr.KindUpstream, "simulated upstream failure")
	}
	id := "real-id"
	f.createdIDs = append(f.createdIDs, id)
	out := map[string]any{}
	for k, v := range data {
		out[k] = v
	}
	out["id"] = id
	return out, nil
}

func (f *fakeOps) UpdateTaskData(ctx context.Context, id string, patch map[string]any) (map[string]any, error) {
	return patch, nil
}

func (f *fakeOps) ArchiveTaskData(ctx context.Context, id string) error {
	return nil
}

func newTestQueue(ops UpstreamOps) (*Queue, *cache.Store) {
	store := cache.New()
	rec := metrics.New(prometheus.NewRegistry())
	q := New(store, ops, rec, zerolog.Nop())
	return q, store
}

func TestEnqueueCreateAssignsTempIDAndOverlay(t *testing.T) {
	q, store := newTestQueue(&fakeOps{})
	defer q.Stop()

	tempID := q.EnqueueCreate(KindTask, map[string]any{"title": "write report"})
	if !strings.HasPrefix(tempID, "temp_") {
		t.Fatalf("expected temp_-prefixed id, got %s", tempID)
	}

	v, ok := store.Get(cache.EntityKey(cache.KindTask, tempID))
	if !ok {
		t.Fatal("expected optimistic overlay in cache immediately after enqueue")
	}
	m := v.(map[string]any)
	if pending, _ := m["_pendingSync"].(bool); !pending {
		t.Error("expected _pendingSync=true on the overlay")
	}
	if temp, _ := m["_temporary"].(bool); !temp {
		t.Error("expected _temporary=true on the overlay")
	}
}

func TestSuccessfulCreateResolvesTempToRealID(t *testing.T) {
	ops := &fakeOps{}
	q, store := newTestQueue(ops)
	defer q.Stop()

	events := q.Events()
	tempID := q.EnqueueCreate(KindTask, map[string]any{"title": "x"})

	select {
	case ev := <-events:
		if ev.Type != EventCreated {
			t.Fatalf("expected EventCreated, got %s", ev.Type)
		}
		if ev.TempID != tempID || ev.RealID != "real-id" {
			t.Errorf("expected temp=%s real=real-id, got temp=%s real=%s", tempID, ev.TempID, ev.RealID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for EventCreated")
	}

	if _, ok := store.Get(cache.EntityKey(cache.KindTask, tempID)); ok {
		t.Error("temp-keyed cache entry should be removed once resolved")
	}
	v, ok := store.Get(cache.EntityKey(cache.KindTask, "real-id"))
	if !ok {
		t.Fatal("expected real-id-keyed cache entry after resolution")
	}
	m := v.(map[string]any)
	if pending, _ := m["_pendingSync"].(bool); pending {
		t.Error("expected _pendingSync=false once resolved")
	}
}

func TestEnqueueUpdateRequiresCachedEntity(t *testing.T) {
	q, _ := newTestQueue(&fakeOps{})
	defer q.Stop()

	err := q.EnqueueUpdate(KindTask, "missing-id", map[string]any{"title": "y"})
	if !syncerr.Is(err, syncerr.KindNotFound) {
		t.Fatalf("expected KindNotFound, got %v", err)
	}
}

func TestRetryableFailureRequeuesThenCompensatesOnExhaustion(t *testing.T) {
	ops := &fakeOps{failUntil: 999} // always fails
	q, store := newTestQueue(ops)
	defer q.Stop()

	events := q.Events()
	tempID := q.EnqueueCreate(KindTask, map[string]any{"title": "z"})

	select {
	case ev := <-events:
		if ev.Type != EventItemFailed {
			t.Fatalf("expected EventItemFailed after exhausting retries, got %s", ev.Type)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("timed out waiting for terminal failure")
	}

	if _, ok := store.Get(cache.EntityKey(cache.KindTask, tempID)); ok {
		t.Error("compensate should remove the dangling temp-keyed create overlay")
	}
}

func TestPushEvictsOldestTenPercentOnOverflow(t *testing.T) {
	// Built directly (not via New) so no worker goroutine drains the queue
	// concurrently with the pushes under test.
	q := &Queue{
		signal:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
		maxSize: 10,
		bus:     NewBus(),
		store:   cache.New(),
		metrics: metrics.New(prometheus.NewRegistry()).Queue,
		log:     zerolog.Nop(),
	}

	for i := 0; i < 10; i++ {
		q.push(&Item{ID: string(rune('a' + i)), Type: ItemCreate, Kind: KindTask, CreatedAt: time.Now()})
	}
	if q.Len() != 10 {
		t.Fatalf("expected 10 items queued, got %d", q.Len())
	}

	q.push(&Item{ID: "overflow", Type: ItemCreate, Kind: KindTask, CreatedAt: time.Now()})
	if q.Len() != 10 {
		t.Fatalf("expected eviction to keep size at maxSize (10), got %d", q.Len())
	}
}

func TestBackoffDelayDoublesPerAttempt(t *testing.T) {
	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
	}
	for _, c := range cases {
		if got := backoffDelay(c.attempts); got != c.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", c.attempts, got, c.want)
		}
	}
}
