package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRecordCacheTracksHitsAndMissesByPrefix(t *testing.T) {
	r := New(prometheus.NewRegistry())
	r.RecordCache(true, "task", time.Millisecond)
	r.RecordCache(true, "task", time.Millisecond)
	r.RecordCache(false, "task", time.Millisecond)
	r.RecordCache(false, "member", time.Millisecond)

	snap := r.CacheSnapshot()
	if snap.HitsByPrefix["task"] != 2 {
		t.Errorf("expected 2 task hits, got %d", snap.HitsByPrefix["task"])
	}
	if snap.MissesByPrefix["task"] != 1 {
		t.Errorf("expected 1 task miss, got %d", snap.MissesByPrefix["task"])
	}
	if snap.MissesByPrefix["member"] != 1 {
		t.Errorf("expected 1 member miss, got %d", snap.MissesByPrefix["member"])
	}
}

func TestResetKindCacheOnlyClearsCacheCounters(t *testing.T) {
	r := New(prometheus.NewRegistry())
	r.RecordCache(true, "task", time.Millisecond)
	r.Queue.IncQueued()

	r.ResetKind("cache")

	if snap := r.CacheSnapshot(); len(snap.HitsByPrefix) != 0 {
		t.Errorf("expected cache counters cleared, got %+v", snap.HitsByPrefix)
	}
	if r.Queue.Snapshot().Queued != 1 {
		t.Error("expected ResetKind(\"cache\") to leave queue metrics untouched")
	}
}

func TestResetKindAllClearsEverySubsystem(t *testing.T) {
	r := New(prometheus.NewRegistry())
	r.RecordCache(true, "task", time.Millisecond)
	r.Queue.IncQueued()
	r.Activity.TouchUser("u1")

	r.ResetKind("all")

	if snap := r.CacheSnapshot(); len(snap.HitsByPrefix) != 0 {
		t.Error("expected cache counters cleared by ResetKind(\"all\")")
	}
	if r.Queue.Snapshot().Queued != 0 {
		t.Error("expected queue counters cleared by ResetKind(\"all\")")
	}
	if r.Activity.Snapshot().ActiveUsers != 0 {
		t.Error("expected activity tracker cleared by ResetKind(\"all\")")
	}
}
