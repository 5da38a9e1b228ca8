// Package syncqueue implements C7: the bounded asynchronous write pipeline.
// A single worker goroutine drains the queue, which by itself satisfies
// Invariant I1 (at most one update/delete in flight per id at any instant —
// there is at most one item in flight at all, for any id). Ordering within
// an id follows directly from FIFO admission plus the single worker,
// grounded on the teacher's reconciler.go `activeReconciles` per-key
// exclusivity idea, simplified because this system has exactly one worker
// rather than a pool.
package syncqueue

import (
	"time"
)

type ItemType string

const (
	ItemCreate ItemType = "create"
	ItemUpdate ItemType = "update"
	ItemDelete ItemType = "delete"
)

type EntityKind string

const (
	KindTask    EntityKind = "task"
	KindProject EntityKind = "project"
	KindMember  EntityKind = "member"
)

type Item struct {
	ID         string
	Type       ItemType
	Kind       EntityKind
	EntityID   string // real id for update/delete; temp id for create
	Data       map[string]any
	Attempts   int
	MaxRetries int
	CreatedAt  time.Time
	LastAttempt time.Time
	Error      string
}

const (
	DefaultMaxSize    = 100
	DefaultMaxRetries = 3
	DefaultWorkerGap  = 350 * time.Millisecond
)
