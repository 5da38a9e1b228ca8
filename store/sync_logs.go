package store

import (
	"context"
	"time"

	"github.com/mattertraffic/syncgw/syncerr"
)

// SyncLogRepo persists sync log rows (SPEC_FULL.md §3: entityKind, sourceId,
// method, status, itemsProcessed, itemsFailed, startTime, endTime, duration,
// webhookEventId?, errors?[]).
type SyncLogRepo struct {
	pool *Pool
}

func NewSyncLogRepo(p *Pool) *SyncLogRepo { return &SyncLogRepo{pool: p} }

// AppendSyncLog implements webhook.SyncLogger.
func (r *SyncLogRepo) AppendSyncLog(ctx context.Context, entityKind, sourceID, status string, startedAt, endedAt time.Time, webhookEventID string, errMsg string) error {
	const q = `
		INSERT INTO sync_logs (entity_kind, source_id, method, status, items_processed, items_failed, start_time, end_time, duration_ms, webhook_event_id, error)
		VALUES ($1, $2, 'webhook', $3, 1, $4, $5, $6, $7, $8, NULLIF($9, ''))`
	itemsFailed := 0
	if status == "failed" {
		itemsFailed = 1
	}
	_, err := r.pool.pool.Exec(ctx, q,
		entityKind, sourceID, status, itemsFailed,
		startedAt, endedAt, endedAt.Sub(startedAt).Milliseconds(), webhookEventID, errMsg,
	)
	if err != nil {
		return syncerr.Wrap(syncerr.KindInternal, "failed to append sync log", err)
	}
	return nil
}

// AppendScheduled records a cron-triggered run (method=scheduled).
func (r *SyncLogRepo) AppendScheduled(ctx context.Context, entityKind, status string, itemsProcessed, itemsFailed int, startedAt, endedAt time.Time, errMsg string) error {
	const q = `
		INSERT INTO sync_logs (entity_kind, source_id, method, status, items_processed, items_failed, start_time, end_time, duration_ms, error)
		VALUES ($1, '', 'scheduled', $2, $3, $4, $5, $6, $7, NULLIF($8, ''))`
	_, err := r.pool.pool.Exec(ctx, q,
		entityKind, status, itemsProcessed, itemsFailed,
		startedAt, endedAt, endedAt.Sub(startedAt).Milliseconds(), errMsg,
	)
	if err != nil {
		return syncerr.Wrap(syncerr.KindInternal, "failed to append scheduled sync log", err)
	}
	return nil
}
