package metrics

import (
	"testing"
	"time"
)

func TestLatencyRingSnapshotComputesStats(t *testing.T) {
	r := NewLatencyRing(10, 5*time.Millisecond)
	for _, ms := range []int{1, 2, 3, 4, 5} {
		r.Add(time.Duration(ms) * time.Millisecond)
	}
	snap := r.Snapshot()
	if snap.Count != 5 {
		t.Errorf("expected count 5, got %d", snap.Count)
	}
	if snap.Min != 1*time.Millisecond {
		t.Errorf("expected min 1ms, got %v", snap.Min)
	}
	if snap.Max != 5*time.Millisecond {
		t.Errorf("expected max 5ms, got %v", snap.Max)
	}
}

func TestLatencyRingTracksThresholdBreaches(t *testing.T) {
	r := NewLatencyRing(10, 5*time.Millisecond)
	if breached := r.Add(1 * time.Millisecond); breached {
		t.Error("1ms should not breach a 5ms threshold")
	}
	if breached := r.Add(10 * time.Millisecond); !breached {
		t.Error("10ms should breach a 5ms threshold")
	}
	if r.Snapshot().Breaches != 1 {
		t.Errorf("expected 1 recorded breach, got %d", r.Snapshot().Breaches)
	}
}

func TestLatencyRingWrapsAtCapacity(t *testing.T) {
	r := NewLatencyRing(3, time.Second)
	for i := 1; i <= 5; i++ {
		r.Add(time.Duration(i) * time.Millisecond)
	}
	snap := r.Snapshot()
	if snap.Count != 3 {
		t.Errorf("expected the ring to cap at 3 samples, got %d", snap.Count)
	}
}

func TestLatencyRingResetClearsBreachesAndFillState(t *testing.T) {
	r := NewLatencyRing(3, time.Millisecond)
	r.Add(10 * time.Millisecond)
	r.Add(10 * time.Millisecond)
	r.Add(10 * time.Millisecond)
	if r.Snapshot().Count != 3 {
		t.Fatal("expected the ring to be full before reset")
	}
	r.Reset()
	if snap := r.Snapshot(); snap.Count != 0 {
		t.Errorf("expected an empty snapshot after reset, got count %d", snap.Count)
	}
}
