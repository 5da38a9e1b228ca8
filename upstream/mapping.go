package upstream

// propertyMap is the single module-level constant mapping the upstream's
// external property-id schema to this system's internal entity field
// names, per SPEC_FULL.md §4.3 ("mapping table lives in a single package-
// level constant map"). The upstream is opaque beyond this: property ids
// are whatever the configured workspace assigns them.
var propertyMap = map[string]string{
	"title":            "Name",
	"workPeriodStart":  "Work Period%start",
	"workPeriodEnd":    "Work Period%end",
	"assignedMembers":  "Assigned Members",
	"projectId":        "Project",
	"taskType":         "Type",
	"status":           "Status",
	"billedHours":      "Billed Hours",
	"actualHours":      "Actual Hours",
	"addToCalendar":    "Add to Calendar",
	"clientPlanning":   "Client Planning",
	"notes":            "Notes",
}

func externalProperty(internalField string) string {
	if ext, ok := propertyMap[internalField]; ok {
		return ext
	}
	return internalField
}
