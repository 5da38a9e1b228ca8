package conflict

import (
	"fmt"
	"time"

	"github.com/mattertraffic/syncgw/domain"
)

const overloadThreshold = 1 // default N concurrent type=task assignments per day

// Evaluate applies the overlap/holiday/school/overload rule set to
// candidate t against the pool of other tasks (SPEC_FULL.md §4.6). Identity
// "same task" uses t.ID; candidate tasks for an update must carry their
// original id so they do not conflict with themselves.
func Evaluate(t domain.Task, pool []domain.Task, now time.Time) []Record {
	var out []Record

	for _, memberID := range t.AssignedMembers {
		sharing := sharingMember(pool, memberID, t)
		out = append(out, overlapConflicts(t, sharing, memberID, now)...)
		out = append(out, holidayConflicts(t, sharing, memberID, now)...)
		out = append(out, schoolConflicts(t, sharing, memberID, now)...)
		out = append(out, overloadConflicts(t, sharing, memberID, now)...)
	}

	return out
}

// sharingMember returns every task in pool other than t itself that has
// memberID assigned and whose work period overlaps t's.
func sharingMember(pool []domain.Task, memberID string, t domain.Task) []domain.Task {
	var out []domain.Task
	for _, other := range pool {
		if other.ID == t.ID {
			continue
		}
		if !other.HasMember(memberID) {
			continue
		}
		if !t.WorkPeriod.Overlaps(other.WorkPeriod) {
			continue
		}
		out = append(out, other)
	}
	return out
}

func overlapConflicts(t domain.Task, sharing []domain.Task, memberID string, now time.Time) []Record {
	var out []Record
	for _, other := range sharing {
		severity := SeverityMedium
		if t.Type == domain.TaskTypeTask && other.Type == domain.TaskTypeTask {
			severity = SeverityHigh
		}
		out = append(out, Record{
			EntityKind:        "task",
			EntityID:          t.ID,
			Kind:              KindOverlap,
			Severity:          severity,
			MemberID:          memberID,
			ConflictingTaskID: other.ID,
			DetectedAt:        now,
			Resolution:        ResolutionPending,
			Details:           fmt.Sprintf("member %s is already assigned to task %s in the same window", memberID, other.ID),
		})
	}
	return out
}

// holidayConflicts and schoolConflicts apply regardless of how many members
// are assigned (§4.6) — they emit one record per matching task in sharing.
func holidayConflicts(t domain.Task, sharing []domain.Task, memberID string, now time.Time) []Record {
	var out []Record
	for _, other := range sharing {
		if other.Type != domain.TaskTypeHoliday {
			continue
		}
		out = append(out, Record{
			EntityKind:        "task",
			EntityID:          t.ID,
			Kind:              KindHoliday,
			Severity:          SeverityHigh,
			MemberID:          memberID,
			ConflictingTaskID: other.ID,
			DetectedAt:        now,
			Resolution:        ResolutionPending,
			Details:           fmt.Sprintf("member %s is on holiday (task %s) during this window", memberID, other.ID),
		})
	}
	return out
}

func schoolConflicts(t domain.Task, sharing []domain.Task, memberID string, now time.Time) []Record {
	var out []Record
	for _, other := range sharing {
		if other.Type != domain.TaskTypeSchool {
			continue
		}
		out = append(out, Record{
			EntityKind:        "task",
			EntityID:          t.ID,
			Kind:              KindSchool,
			Severity:          SeverityMedium,
			MemberID:          memberID,
			ConflictingTaskID: other.ID,
			DetectedAt:        now,
			Resolution:        ResolutionPending,
			Details:           fmt.Sprintf("member %s is in school (task %s) during this window", memberID, other.ID),
		})
	}
	return out
}

// overloadConflicts flags any day covered by t.WorkPeriod where memberID
// would have more than overloadThreshold concurrent type=task assignments,
// counting t itself if it is a task.
func overloadConflicts(t domain.Task, sharing []domain.Task, memberID string, now time.Time) []Record {
	if t.WorkPeriod.StartDate == nil || t.WorkPeriod.EndDate == nil {
		return nil
	}

	var out []Record
	seen := make(map[string]bool)
	for day := truncateDay(*t.WorkPeriod.StartDate); !day.After(*t.WorkPeriod.EndDate); day = day.Add(24 * time.Hour) {
		dayKey := day.Format("2006-01-02")
		if seen[dayKey] {
			continue
		}

		count := 0
		if t.Type == domain.TaskTypeTask {
			count++
		}
		var worst string
		for _, other := range sharing {
			if other.Type == domain.TaskTypeTask && other.WorkPeriod.CoversDay(day) {
				count++
				worst = other.ID
			}
		}

		if count > overloadThreshold {
			seen[dayKey] = true
			out = append(out, Record{
				EntityKind:        "task",
				EntityID:          t.ID,
				Kind:              KindOverload,
				Severity:          SeverityMedium,
				MemberID:          memberID,
				ConflictingTaskID: worst,
				DetectedAt:        now,
				Resolution:        ResolutionPending,
				Details:           fmt.Sprintf("member %s has %d concurrent task assignments on %s", memberID, count, dayKey),
			})
		}
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
