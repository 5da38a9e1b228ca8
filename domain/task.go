// Package domain holds the entity shapes this system caches and
// synchronizes. Entities are opaque to the upstream except for keys and
// relations (SPEC_FULL.md §3); relations are stored as bare ids and
// resolved lazily by batch loaders elsewhere, never serialized back as
// cyclic references.
package domain

import "time"

type TaskType string

const (
	TaskTypeTask   TaskType = "task"
	TaskTypeHoliday TaskType = "holiday"
	TaskTypeSchool TaskType = "school"
	TaskTypeRemote TaskType = "remote"
)

type TaskStatus string

const (
	TaskStatusNotStarted TaskStatus = "not_started"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

type WorkPeriod struct {
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

// Overlaps reports whether two work periods share any instant. A nil bound
// on either side is treated as open-ended (never overlaps, conservatively,
// since an unscheduled task cannot conflict).
func (w WorkPeriod) Overlaps(o WorkPeriod) bool {
	if w.StartDate == nil || w.EndDate == nil || o.StartDate == nil || o.EndDate == nil {
		return false
	}
	return w.StartDate.Before(*o.EndDate) && o.StartDate.Before(*w.EndDate)
}

// CoversDay reports whether day (truncated to its own 24h window) is
// touched by the work period, used by the overload rule's per-day count.
func (w WorkPeriod) CoversDay(day time.Time) bool {
	if w.StartDate == nil || w.EndDate == nil {
		return false
	}
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)
	return w.StartDate.Before(dayEnd) && dayStart.Before(*w.EndDate)
}

type Task struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	WorkPeriod       WorkPeriod `json:"workPeriod"`
	AssignedMembers  []string   `json:"assignedMembers"`
	ProjectID        *string    `json:"projectId,omitempty"`
	Type             TaskType   `json:"taskType"`
	Status           TaskStatus `json:"status"`
	BilledHours      float64    `json:"billedHours"`
	ActualHours      float64    `json:"actualHours"`
	AddToCalendar    bool       `json:"addToCalendar"`
	ClientPlanning   bool       `json:"clientPlanning"`
	Notes            string     `json:"notes"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// HasMember reports whether memberID is among the task's assigned members.
func (t Task) HasMember(memberID string) bool {
	for _, m := range t.AssignedMembers {
		if m == memberID {
			return true
		}
	}
	return false
}

type Project struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ClientID string `json:"clientId,omitempty"`
}

type Client struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Member struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	TeamID string `json:"teamId,omitempty"`
}

type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
