package cachemgr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mattertraffic/syncgw/cache"
	"github.com/mattertraffic/syncgw/domain"
	"github.com/mattertraffic/syncgw/metrics"
)

type fakeSource struct {
	tasks      []domain.Task
	byKind     map[string][]map[string]any
	kindErrs   map[string]error
	rangeCalls int
	kindCalls  map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		byKind:    make(map[string][]map[string]any),
		kindCalls: make(map[string]int),
	}
}

func (f *fakeSource) RangeQueryTasks(ctx context.Context, priority int, start, end time.Time) ([]domain.Task, error) {
	f.rangeCalls++
	return f.tasks, nil
}

func (f *fakeSource) ListByKind(ctx context.Context, priority int, kind string) ([]map[string]any, error) {
	f.kindCalls[kind]++
	if err := f.kindErrs[kind]; err != nil {
		return nil, err
	}
	return f.byKind[kind], nil
}

func TestWarmupPopulatesFullEntitySet(t *testing.T) {
	store := cache.New()
	m := New(store, metrics.New(prometheus.NewRegistry()))

	src := newFakeSource()
	src.tasks = []domain.Task{{ID: "t1"}}
	src.byKind["member"] = []map[string]any{{"id": "mem1"}}
	src.byKind["team"] = []map[string]any{{"id": "team1"}}
	src.byKind["project"] = []map[string]any{{"id": "proj1"}}
	src.byKind["client"] = []map[string]any{{"id": "cli1"}}

	if err := m.Warmup(context.Background(), src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := store.Get(cache.EntityKey(cache.KindTask, "t1")); !ok {
		t.Error("expected task t1 to be cached after warmup")
	}
	if _, ok := store.Get(cache.EntityKey(cache.KindMember, "mem1")); !ok {
		t.Error("expected member mem1 to be cached after warmup")
	}
	if _, ok := store.Get(cache.EntityKey(cache.KindTeam, "team1")); !ok {
		t.Error("expected team team1 to be cached after warmup")
	}
	if _, ok := store.Get(cache.EntityKey(cache.KindProject, "proj1")); !ok {
		t.Error("expected project proj1 to be cached after warmup")
	}
	if _, ok := store.Get(cache.EntityKey(cache.KindClient, "cli1")); !ok {
		t.Error("expected client cli1 to be cached after warmup")
	}
	for _, kind := range []string{"member", "team", "project", "client"} {
		if src.kindCalls[kind] != 1 {
			t.Errorf("expected ListByKind(%q) to be called once, got %d", kind, src.kindCalls[kind])
		}
	}
}

func TestRefreshOnlyTouchesHotWorkingSet(t *testing.T) {
	store := cache.New()
	m := New(store, metrics.New(prometheus.NewRegistry()))

	src := newFakeSource()
	src.tasks = []domain.Task{{ID: "t1"}}
	src.byKind["member"] = []map[string]any{{"id": "mem1"}}
	src.byKind["team"] = []map[string]any{{"id": "team1"}}
	src.byKind["project"] = []map[string]any{{"id": "proj1"}}

	if err := m.Refresh(context.Background(), src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, called := src.kindCalls["project"]; called {
		t.Error("Refresh must not touch project (only the hot set: tasks, members, teams)")
	}
	if src.kindCalls["member"] != 1 || src.kindCalls["team"] != 1 {
		t.Errorf("expected Refresh to fetch member and team exactly once each, got %+v", src.kindCalls)
	}
}

func TestWarmupCollectsErrorsAcrossKindsRatherThanAborting(t *testing.T) {
	store := cache.New()
	m := New(store, metrics.New(prometheus.NewRegistry()))

	src := newFakeSource()
	src.byKind["member"] = []map[string]any{{"id": "mem1"}}
	// The project listing fails; the other kinds must still be fetched and
	// the failure must come back from Warmup.
	errProject := errors.New("project listing failed")
	src.kindErrs = map[string]error{"project": errProject}
	if err := m.Warmup(context.Background(), src); !errors.Is(err, errProject) {
		t.Fatalf("expected the failing kind's error to be returned, got %v", err)
	}
	if _, ok := store.Get(cache.EntityKey(cache.KindMember, "mem1")); !ok {
		t.Error("expected member mem1 to still be cached")
	}
}
