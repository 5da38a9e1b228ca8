package metrics

import (
	"testing"
)

func TestActivityTrackerCountsRecentActiveUsers(t *testing.T) {
	a := NewActivityTracker()
	a.TouchUser("u1")
	a.TouchUser("u2")
	a.TouchUser("u1") // re-touch, still one distinct user

	snap := a.Snapshot()
	if snap.ActiveUsers != 2 {
		t.Errorf("expected 2 active users, got %d", snap.ActiveUsers)
	}
}

func TestActivityTrackerRecordRequestAccumulatesRate(t *testing.T) {
	a := NewActivityTracker()
	for i := 0; i < 5; i++ {
		a.RecordRequest()
	}
	if got := a.Snapshot().RequestRate; got != 5 {
		t.Errorf("expected request rate 5, got %d", got)
	}
}

func TestActivityTrackerGroupsIdenticalErrors(t *testing.T) {
	a := NewActivityTracker()
	a.RecordError("upstream timeout")
	a.RecordError("upstream timeout")
	a.RecordError("rate limited")

	errs := a.Snapshot().Errors
	if len(errs) != 2 {
		t.Fatalf("expected 2 distinct error groups, got %d", len(errs))
	}
	var timeoutCount int
	for _, e := range errs {
		if e.Message == "upstream timeout" {
			timeoutCount = e.Count
		}
	}
	if timeoutCount != 2 {
		t.Errorf("expected the repeated message to be counted twice, got %d", timeoutCount)
	}
}

func TestActivityTrackerResetClearsEverything(t *testing.T) {
	a := NewActivityTracker()
	a.TouchUser("u1")
	a.RecordRequest()
	a.RecordError("boom")

	a.Reset()
	snap := a.Snapshot()
	if snap.ActiveUsers != 0 || snap.RequestRate != 0 || len(snap.Errors) != 0 {
		t.Errorf("expected a fully cleared snapshot after reset, got %+v", snap)
	}
}
