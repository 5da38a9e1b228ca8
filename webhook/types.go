// Package webhook implements C8: ingest of signed change notifications from
// the upstream. The handler must answer within 3 seconds, so it never calls
// the upstream synchronously (Invariant I5) — it resolves the source
// database id to an entity kind via a stored mapping, invalidates the
// corresponding cache keys, and appends a sync log entry, all against
// already-local state.
package webhook

import "time"

// Envelope is the wire shape described in SPEC_FULL.md §6: {type,
// data:{id, parent:{database_id|data_source_id}}}.
type Envelope struct {
	Type string `json:"type"`
	Data struct {
		ID     string `json:"id"`
		Parent struct {
			DatabaseID   string `json:"database_id"`
			DataSourceID string `json:"data_source_id"`
		} `json:"parent"`
	} `json:"data"`
}

func (e Envelope) sourceID() string {
	if e.Data.Parent.DatabaseID != "" {
		return e.Data.Parent.DatabaseID
	}
	return e.Data.Parent.DataSourceID
}

// Mode is the persisted capture-mode flag controlling verification behavior.
type Mode string

const (
	ModeCapture Mode = "capture"
	ModeNormal  Mode = "normal"
)

// CaptureWindow is how long capture-mode stays armed before auto-disabling.
const CaptureWindow = 5 * time.Minute

// CaptureResult is what gets persisted back to the config row once a
// capture-mode delivery lands.
type CaptureResult struct {
	Secret     string
	CapturedAt time.Time
	SourceIP   string
}

// Decision records what the handler did with one delivery, for logging and
// for the sync log entry appended on acceptance.
type Decision struct {
	Accepted   bool
	Kind       string // resolved entity kind, empty if source id unknown
	SourceID   string
	EventID    string
	Duplicate  bool
	Invalidated []string
	Reason     string // set when Accepted is false
}
