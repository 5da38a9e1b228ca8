package store

import (
	"context"

	"github.com/mattertraffic/syncgw/conflict"
	"github.com/mattertraffic/syncgw/syncerr"
)

// ConflictLogRepo implements conflict.Persister: an atomic delete-then-insert
// replace of a task's conflict set, grounded on the teacher's upsert idiom
// but using a transaction instead of ON CONFLICT because the set of rows for
// a task can shrink as well as grow between detections.
type ConflictLogRepo struct {
	pool *Pool
}

func NewConflictLogRepo(p *Pool) *ConflictLogRepo { return &ConflictLogRepo{pool: p} }

func (r *ConflictLogRepo) ReplaceConflicts(ctx context.Context, taskID string, records []conflict.Record) error {
	tx, err := r.pool.pool.Begin(ctx)
	if err != nil {
		return syncerr.Wrap(syncerr.KindInternal, "failed to begin conflict log transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM conflict_logs WHERE entity_id = $1`, taskID); err != nil {
		return syncerr.Wrap(syncerr.KindInternal, "failed to clear existing conflict log rows", err)
	}

	const insert = `
		INSERT INTO conflict_logs (entity_kind, entity_id, kind, severity, member_id, conflicting_task_id, detected_at, resolution, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for _, rec := range records {
		if _, err := tx.Exec(ctx, insert,
			rec.EntityKind, rec.EntityID, rec.Kind, rec.Severity, rec.MemberID,
			rec.ConflictingTaskID, rec.DetectedAt, rec.Resolution, rec.Details,
		); err != nil {
			return syncerr.Wrap(syncerr.KindInternal, "failed to insert conflict log row", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return syncerr.Wrap(syncerr.KindInternal, "failed to commit conflict log transaction", err)
	}
	return nil
}
