package cache

// Overlay carries the optimistic-write flags a cached entity may wear
// between enqueue and queue resolution (SPEC_FULL.md §3, design note §9's
// "explicit Partial<Task> overlay"). Embedding Overlay in each entity kind's
// cached representation keeps the flags structured rather than a
// dynamically-shaped map.
type Overlay struct {
	Temporary    bool   `json:"_temporary,omitempty"`
	PendingSync  bool   `json:"_pendingSync,omitempty"`
	Deleted      bool   `json:"_deleted,omitempty"`
	SyncError    bool   `json:"_syncError,omitempty"`
	SyncErrorMsg string `json:"_syncErrorMsg,omitempty"`
}

func (o *Overlay) ClearSyncState() {
	o.PendingSync = false
	o.Deleted = false
	o.SyncError = false
	o.SyncErrorMsg = ""
}

func (o *Overlay) MarkSyncError(msg string) {
	o.SyncError = true
	o.SyncErrorMsg = msg
}

// Patch renders every overlay flag as a map[string]any, for callers whose
// cached entity is a dynamically-shaped map rather than a typed struct. This
// intentionally bypasses the struct's own omitempty JSON tags: a patch must
// be able to assert a flag back to false (e.g. clearing _deleted), not omit
// the key and leave the old value in place.
func (o Overlay) Patch() map[string]any {
	return map[string]any{
		"_temporary":    o.Temporary,
		"_pendingSync":  o.PendingSync,
		"_deleted":      o.Deleted,
		"_syncError":    o.SyncError,
		"_syncErrorMsg": o.SyncErrorMsg,
	}
}
