package domain

import (
	"testing"
	"time"
)

func mustPeriod(startOffset, endOffset int) WorkPeriod {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	start := now.AddDate(0, 0, startOffset)
	end := now.AddDate(0, 0, endOffset)
	return WorkPeriod{StartDate: &start, EndDate: &end}
}

func TestWorkPeriodOverlaps(t *testing.T) {
	a := mustPeriod(0, 5)
	b := mustPeriod(3, 8)
	if !a.Overlaps(b) {
		t.Error("expected overlapping ranges to overlap")
	}
	if !b.Overlaps(a) {
		t.Error("Overlaps should be symmetric")
	}

	c := mustPeriod(10, 12)
	if a.Overlaps(c) {
		t.Error("expected disjoint ranges not to overlap")
	}
}

func TestWorkPeriodOverlapsTreatsUnscheduledAsNeverOverlapping(t *testing.T) {
	scheduled := mustPeriod(0, 5)
	unscheduled := WorkPeriod{}
	if scheduled.Overlaps(unscheduled) {
		t.Error("an unscheduled work period must never be reported as overlapping")
	}
	if unscheduled.Overlaps(unscheduled) {
		t.Error("two unscheduled work periods must never be reported as overlapping")
	}
}

func TestWorkPeriodCoversDay(t *testing.T) {
	p := mustPeriod(0, 3)
	day := time.Date(2026, 3, 11, 15, 0, 0, 0, time.UTC)
	if !p.CoversDay(day) {
		t.Error("expected a day within the period's range to be covered")
	}

	outside := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	if p.CoversDay(outside) {
		t.Error("expected a day outside the period's range not to be covered")
	}
}

func TestTaskHasMember(t *testing.T) {
	task := Task{AssignedMembers: []string{"m1", "m2"}}
	if !task.HasMember("m1") {
		t.Error("expected m1 to be found")
	}
	if task.HasMember("m3") {
		t.Error("expected m3 not to be found")
	}
}
