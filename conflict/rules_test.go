package conflict

import (
	"testing"
	"time"

	"github.com/mattertraffic/syncgw/domain"
)

func day(offset int) time.Time {
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // Monday
	return base.AddDate(0, 0, offset)
}

func period(startOffset, endOffset int) domain.WorkPeriod {
	s := day(startOffset)
	e := day(endOffset)
	return domain.WorkPeriod{StartDate: &s, EndDate: &e}
}

func TestOverlapConflictBetweenTwoTasks(t *testing.T) {
	candidate := domain.Task{
		ID:              "t1",
		Type:            domain.TaskTypeTask,
		AssignedMembers: []string{"m1"},
		WorkPeriod:      period(0, 2),
	}
	other := domain.Task{
		ID:              "t2",
		Type:            domain.TaskTypeTask,
		AssignedMembers: []string{"m1"},
		WorkPeriod:      period(1, 3),
	}

	records := Evaluate(candidate, []domain.Task{other}, time.Now())
	if len(records) == 0 {
		t.Fatal("expected at least one overlap conflict")
	}
	var found bool
	for _, r := range records {
		if r.Kind == KindOverlap && r.Severity == SeverityHigh {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a high-severity task/task overlap, got %+v", records)
	}
}

func TestNoOverlapWhenPeriodsDisjoint(t *testing.T) {
	candidate := domain.Task{
		ID:              "t1",
		Type:            domain.TaskTypeTask,
		AssignedMembers: []string{"m1"},
		WorkPeriod:      period(0, 1),
	}
	other := domain.Task{
		ID:              "t2",
		Type:            domain.TaskTypeTask,
		AssignedMembers: []string{"m1"},
		WorkPeriod:      period(5, 6),
	}

	records := Evaluate(candidate, []domain.Task{other}, time.Now())
	if len(records) != 0 {
		t.Errorf("expected no conflicts for disjoint periods, got %+v", records)
	}
}

func TestSelfIsExcludedFromItsOwnConflictPool(t *testing.T) {
	candidate := domain.Task{
		ID:              "t1",
		Type:            domain.TaskTypeTask,
		AssignedMembers: []string{"m1"},
		WorkPeriod:      period(0, 2),
	}
	records := Evaluate(candidate, []domain.Task{candidate}, time.Now())
	if len(records) != 0 {
		t.Errorf("a task must never conflict with itself, got %+v", records)
	}
}

func TestHolidayConflictFiresRegardlessOfTaskType(t *testing.T) {
	candidate := domain.Task{
		ID:              "t1",
		Type:            domain.TaskTypeRemote,
		AssignedMembers: []string{"m1"},
		WorkPeriod:      period(0, 2),
	}
	holiday := domain.Task{
		ID:              "h1",
		Type:            domain.TaskTypeHoliday,
		AssignedMembers: []string{"m1"},
		WorkPeriod:      period(1, 1),
	}

	records := Evaluate(candidate, []domain.Task{holiday}, time.Now())
	var found bool
	for _, r := range records {
		if r.Kind == KindHoliday {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a holiday conflict, got %+v", records)
	}
}

func TestOverloadConflictOnSecondConcurrentTask(t *testing.T) {
	candidate := domain.Task{
		ID:              "t1",
		Type:            domain.TaskTypeTask,
		AssignedMembers: []string{"m1"},
		WorkPeriod:      period(0, 1),
	}
	other1 := domain.Task{ID: "t2", Type: domain.TaskTypeTask, AssignedMembers: []string{"m1"}, WorkPeriod: period(0, 1)}

	records := Evaluate(candidate, []domain.Task{other1}, time.Now())
	var found bool
	for _, r := range records {
		if r.Kind == KindOverload {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an overload conflict with 2 concurrent task-type assignments (threshold=1), got %+v", records)
	}
}

func TestUnscheduledTaskNeverConflicts(t *testing.T) {
	candidate := domain.Task{
		ID:              "t1",
		Type:            domain.TaskTypeTask,
		AssignedMembers: []string{"m1"},
	}
	other := domain.Task{ID: "t2", Type: domain.TaskTypeTask, AssignedMembers: []string{"m1"}, WorkPeriod: period(0, 5)}

	records := Evaluate(candidate, []domain.Task{other}, time.Now())
	if len(records) != 0 {
		t.Errorf("an unscheduled task (nil work period) must not conflict, got %+v", records)
	}
}
