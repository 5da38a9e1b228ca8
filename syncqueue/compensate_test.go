package syncqueue

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/mattertraffic/syncgw/cache"
	"github.com/mattertraffic/syncgw/metrics"
)

func TestCompensateOnCreateRemovesTheDanglingTempRow(t *testing.T) {
	store := cache.New()
	rec := metrics.New(prometheus.NewRegistry())
	q := &Queue{store: store, metrics: rec, log: zerolog.Nop()}

	key := cache.EntityKey(cache.KindTask, "tmp-1")
	store.Set(key, map[string]any{"id": "tmp-1", "title": "x"}, cache.KindTask)

	q.compensate(&Item{Type: ItemCreate, Kind: "task", EntityID: "tmp-1"}, errors.New("upstream rejected"))

	if _, ok := store.Get(key); ok {
		t.Error("expected the temp-keyed create row to be removed on compensate")
	}
}

func TestCompensateOnUpdateFlagsTheExistingRowRatherThanDeletingIt(t *testing.T) {
	store := cache.New()
	rec := metrics.New(prometheus.NewRegistry())
	q := &Queue{store: store, metrics: rec, log: zerolog.Nop()}

	key := cache.EntityKey(cache.KindTask, "real-1")
	store.Set(key, map[string]any{"id": "real-1", "title": "pre-write state"}, cache.KindTask)

	q.compensate(&Item{Type: ItemUpdate, Kind: "task", EntityID: "real-1"}, errors.New("timed out"))

	got, ok := store.Get(key)
	if !ok {
		t.Fatal("expected the row to still exist after a failed update compensate")
	}
	m := got.(map[string]any)
	if m["_pendingSync"] != false {
		t.Errorf("expected _pendingSync cleared, got %v", m["_pendingSync"])
	}
	if m["_syncError"] != true {
		t.Errorf("expected _syncError set, got %v", m["_syncError"])
	}
	if m["_syncErrorMsg"] != "timed out" {
		t.Errorf("expected the failure cause recorded, got %v", m["_syncErrorMsg"])
	}
	if m["title"] != "pre-write state" {
		t.Error("expected the pre-write cached state to be preserved, not deleted")
	}
}

func TestCompensateOnDeleteLeavesTheRowFlaggedNotRemoved(t *testing.T) {
	store := cache.New()
	rec := metrics.New(prometheus.NewRegistry())
	q := &Queue{store: store, metrics: rec, log: zerolog.Nop()}

	key := cache.EntityKey(cache.KindTask, "real-2")
	// Seed the row as EnqueueDelete would have left it: optimistically
	// marked _deleted before the upstream call was ever attempted.
	store.Set(key, map[string]any{"id": "real-2", "_deleted": true, "_pendingSync": true}, cache.KindTask)

	q.compensate(&Item{Type: ItemDelete, Kind: "task", EntityID: "real-2"}, errors.New("upstream unavailable"))

	got, ok := store.Get(key)
	if !ok {
		t.Fatal("expected a failed delete to leave the row in place")
	}
	m := got.(map[string]any)
	if m["_syncError"] != true {
		t.Error("expected _syncError set on a failed delete")
	}
	if m["_syncErrorMsg"] != "upstream unavailable" {
		t.Errorf("expected the failure cause recorded, got %v", m["_syncErrorMsg"])
	}
	if m["_deleted"] != false {
		t.Errorf("expected _deleted cleared so the entity reappears in reads, got %v", m["_deleted"])
	}
	if m["_pendingSync"] != false {
		t.Errorf("expected _pendingSync cleared, got %v", m["_pendingSync"])
	}
}
