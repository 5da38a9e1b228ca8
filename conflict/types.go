// Package conflict implements C6: given a candidate task, produce the list
// of scheduling conflicts using the overlap/holiday/school/overload rule
// set, sourcing candidate data via the hybrid cache-then-upstream strategy,
// and persisting the result as an atomic replace. Rule evaluation is bespoke
// business logic — no library in the example pack does scheduling-conflict
// math, so this is plain Go (see DESIGN.md).
package conflict

import "time"

type Kind string

const (
	KindOverlap          Kind = "overlap"
	KindHoliday          Kind = "holiday"
	KindSchool           Kind = "school"
	KindOverload         Kind = "overload"
	KindVersionMismatch  Kind = "version_mismatch"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type Resolution string

const (
	ResolutionPending     Resolution = "pending"
	ResolutionUpstreamWins Resolution = "notion_wins"
	ResolutionLocalWins   Resolution = "local_wins"
	ResolutionMerged      Resolution = "merged"
	ResolutionManual      Resolution = "manual"
)

type Record struct {
	ID                string     `json:"id"`
	EntityKind        string     `json:"entityKind"`
	EntityID          string     `json:"entityId"`
	Kind              Kind       `json:"kind"`
	Severity          Severity   `json:"severity"`
	MemberID          string     `json:"memberId,omitempty"`
	ConflictingTaskID string     `json:"conflictingTaskId,omitempty"`
	DetectedAt        time.Time  `json:"detectedAt"`
	ResolvedAt        *time.Time `json:"resolvedAt,omitempty"`
	Resolution        Resolution `json:"resolution"`
	AutoResolved      bool       `json:"autoResolved"`
	AffectedFields    []string   `json:"affectedFields,omitempty"`
	Details           string     `json:"details"`
	LocalData         any        `json:"localData,omitempty"`
	RemoteData        any        `json:"remoteData,omitempty"`
}

// Method tags the data-sourcing strategy that produced a Result, so callers
// can distinguish "checked, no conflicts" from "could not check" (§4.6).
type Method string

const (
	MethodCache  Method = "cache"
	MethodHybrid Method = "hybrid"
	MethodNone   Method = "none"
)

type Result struct {
	Conflicts []Record `json:"conflicts"`
	Method    Method   `json:"method"`
}
