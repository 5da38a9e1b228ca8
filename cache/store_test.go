package cache

import (
	"testing"
	"time"
)

func TestGetSetRoundTrip(t *testing.T) {
	s := New()
	s.Set(EntityKey(KindTask, "t1"), map[string]any{"id": "t1"}, KindTask)

	v, ok := s.Get(EntityKey(KindTask, "t1"))
	if !ok {
		t.Fatal("expected hit after Set")
	}
	m := v.(map[string]any)
	if m["id"] != "t1" {
		t.Errorf("expected id t1, got %v", m["id"])
	}
}

func TestGetMissingKey(t *testing.T) {
	s := New()
	if _, ok := s.Get("task:nope"); ok {
		t.Error("expected miss on absent key")
	}
}

func TestSetResetsTTL(t *testing.T) {
	s := New()
	key := EntityKey(KindTask, "t1")
	s.SetTTL(key, "v1", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if _, ok := s.Get(key); ok {
		t.Fatal("expected expiry before reset")
	}

	s.SetTTL(key, "v2", time.Hour)
	if _, ok := s.Get(key); !ok {
		t.Fatal("expected live entry after reset")
	}
}

func TestDelIsIdempotent(t *testing.T) {
	s := New()
	s.Del("task:nope") // must not panic on absent key
	s.Set(EntityKey(KindTask, "t1"), "v", KindTask)
	s.Del(EntityKey(KindTask, "t1"))
	s.Del(EntityKey(KindTask, "t1"))
	if _, ok := s.Get(EntityKey(KindTask, "t1")); ok {
		t.Error("expected miss after delete")
	}
}

func TestInvalidatePatternColonAligned(t *testing.T) {
	s := New()
	s.Set(EntityKey(KindTask, "a"), "va", KindTask)
	s.Set(EntityKey(KindTask, "b"), "vb", KindTask)
	s.Set(EntityKey(KindProject, "p1"), "vp", KindProject)

	n := s.InvalidatePattern("task:*")
	if n != 2 {
		t.Errorf("expected 2 invalidated, got %d", n)
	}
	if _, ok := s.Get(EntityKey(KindTask, "a")); ok {
		t.Error("task:a should be gone")
	}
	if _, ok := s.Get(EntityKey(KindProject, "p1")); !ok {
		t.Error("project:p1 should survive an unrelated prefix invalidation")
	}
}

func TestInvalidatePatternExactKey(t *testing.T) {
	s := New()
	key := CalendarKey(time.Now(), time.Now().AddDate(0, 0, 7))
	s.Set(key, []string{"x"}, KindDerived)

	if n := s.InvalidatePattern(key); n != 1 {
		t.Errorf("expected 1 invalidated for exact key, got %d", n)
	}
	if n := s.InvalidatePattern("nonexistent-key"); n != 0 {
		t.Errorf("expected 0 invalidated for absent exact key, got %d", n)
	}
}

func TestCalendarKeyReflectsRequestedRange(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)
	k1 := CalendarKey(start, end)
	k2 := CalendarKey(start.AddDate(0, 0, 1), end)
	if k1 == k2 {
		t.Error("CalendarKey must vary with the requested range, not be a fixed scratchpad key")
	}
}
