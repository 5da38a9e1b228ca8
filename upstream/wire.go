package upstream

import (
	"time"

	"github.com/mattertraffic/syncgw/domain"
)

// wireTask is the shape actually exchanged with the upstream, keyed by its
// external property names. Converting through externalProperty keeps the
// mapping table (mapping.go) the single place that knows the external
// schema.
type wireTask struct {
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties"`
	CreatedAt  time.Time      `json:"created_time"`
	UpdatedAt  time.Time      `json:"last_edited_time"`
}

func taskToWire(t domain.Task) wireTask {
	props := map[string]any{
		externalProperty("title"):           t.Title,
		externalProperty("assignedMembers"):  t.AssignedMembers,
		externalProperty("taskType"):         string(t.Type),
		externalProperty("status"):           string(t.Status),
		externalProperty("billedHours"):      t.BilledHours,
		externalProperty("actualHours"):      t.ActualHours,
		externalProperty("addToCalendar"):    t.AddToCalendar,
		externalProperty("clientPlanning"):   t.ClientPlanning,
		externalProperty("notes"):            t.Notes,
	}
	if t.WorkPeriod.StartDate != nil {
		props[externalProperty("workPeriodStart")] = t.WorkPeriod.StartDate.Format(time.RFC3339)
	}
	if t.WorkPeriod.EndDate != nil {
		props[externalProperty("workPeriodEnd")] = t.WorkPeriod.EndDate.Format(time.RFC3339)
	}
	if t.ProjectID != nil {
		props[externalProperty("projectId")] = *t.ProjectID
	}
	return wireTask{ID: t.ID, Properties: props}
}

// patchToWire maps a sparse internal-field patch to external property
// names without requiring the full Task shape.
func patchToWire(patch map[string]any) wireTask {
	props := make(map[string]any, len(patch))
	for field, value := range patch {
		props[externalProperty(field)] = value
	}
	return wireTask{Properties: props}
}

func (w wireTask) toDomain() domain.Task {
	get := func(field string) any { return w.Properties[externalProperty(field)] }
	asString := func(v any) string {
		s, _ := v.(string)
		return s
	}
	asBool := func(v any) bool {
		b, _ := v.(bool)
		return b
	}
	asFloat := func(v any) float64 {
		f, _ := v.(float64)
		return f
	}
	asStrings := func(v any) []string {
		raw, ok := v.([]any)
		if !ok {
			return nil
		}
		out := make([]string, 0, len(raw))
		for _, r := range raw {
			out = append(out, asString(r))
		}
		return out
	}
	parseTime := func(v any) *time.Time {
		s := asString(v)
		if s == "" {
			return nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil
		}
		return &t
	}

	t := domain.Task{
		ID:              w.ID,
		Title:           asString(get("title")),
		AssignedMembers: asStrings(get("assignedMembers")),
		Type:            domain.TaskType(asString(get("taskType"))),
		Status:          domain.TaskStatus(asString(get("status"))),
		BilledHours:     asFloat(get("billedHours")),
		ActualHours:     asFloat(get("actualHours")),
		AddToCalendar:   asBool(get("addToCalendar")),
		ClientPlanning:  asBool(get("clientPlanning")),
		Notes:           asString(get("notes")),
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
		WorkPeriod: domain.WorkPeriod{
			StartDate: parseTime(get("workPeriodStart")),
			EndDate:   parseTime(get("workPeriodEnd")),
		},
	}
	if pid := asString(get("projectId")); pid != "" {
		t.ProjectID = &pid
	}
	return t
}
