package syncqueue

import (
	"context"
	"time"

	"github.com/mattertraffic/syncgw/cache"
	"github.com/mattertraffic/syncgw/syncerr"
)

// run is the single dedicated worker goroutine (SPEC_FULL.md §4.7, §5). One
// worker draining a FIFO queue is what gives Invariant I1 for free: there is
// never more than one in-flight write for any id, because there is never
// more than one in-flight write at all.
func (q *Queue) run() {
	ticker := time.NewTicker(q.workerGap)
	defer ticker.Stop()

	for {
		select {
		case <-q.stop:
			return
		case <-q.signal:
		case <-ticker.C:
		}

		for {
			item, ok := q.pop()
			if !ok {
				break
			}
			q.metrics.DecQueued()
			q.process(item)
			select {
			case <-q.stop:
				return
			case <-time.After(q.workerGap):
			}
		}
	}
}

// process dispatches item against the upstream and resolves the cache
// overlay on success, requeues with backoff on a retryable failure below
// MaxRetries, or compensates and emits item:failed otherwise.
func (q *Queue) process(item *Item) {
	item.Attempts++
	item.LastAttempt = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	started := time.Now()
	result, err := q.dispatch(ctx, item)
	elapsed := time.Since(started).Nanoseconds()

	if err == nil {
		q.metrics.RecordProcessed(elapsed, false)
		q.resolveSuccess(item, result)
		return
	}

	item.Error = err.Error()
	if syncerr.Retryable(err) && item.Attempts < item.MaxRetries {
		delay := backoffDelay(item.Attempts)
		q.log.Warn().Str("item_id", item.ID).Str("entity_id", item.EntityID).
			Int("attempt", item.Attempts).Dur("delay", delay).Err(err).
			Msg("sync queue: retryable failure, requeuing")
		q.metrics.IncRetries()
		q.pushDelayed(item, delay)
		return
	}

	q.metrics.RecordProcessed(elapsed, true)
	q.log.Error().Str("item_id", item.ID).Str("entity_id", item.EntityID).
		Err(err).Msg("sync queue: terminal failure, compensating")
	q.compensate(item, err)
	q.bus.Publish(Event{Type: EventItemFailed, Item: *item, Cause: err})
}

// backoffDelay implements B(attempts) = 2^(attempts-1) * 1s.
func backoffDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	return time.Duration(1<<uint(attempts-1)) * time.Second
}

// dispatch performs the actual upstream call for item. Only kind=task
// exercises the CRUD path; project/member items are read-mostly entities
// synced via discovery (C3) rather than written through this queue, so they
// resolve immediately without an upstream call.
func (q *Queue) dispatch(ctx context.Context, item *Item) (map[string]any, error) {
	if item.Kind != KindTask {
		return item.Data, nil
	}

	switch item.Type {
	case ItemCreate:
		return q.ops.CreateTaskData(ctx, item.Data)
	case ItemUpdate:
		return q.ops.UpdateTaskData(ctx, item.EntityID, item.Data)
	case ItemDelete:
		return nil, q.ops.ArchiveTaskData(ctx, item.EntityID)
	default:
		return nil, syncerr.New(syncerr.KindInternal, "unknown sync queue item type")
	}
}

// resolveSuccess reconciles the optimistic cache overlay with the
// authoritative upstream result: a create swaps the temp-keyed entry for the
// real id, an update/delete clears the pending-sync flags in place.
func (q *Queue) resolveSuccess(item *Item, result map[string]any) {
	switch item.Type {
	case ItemCreate:
		realID, _ := result["id"].(string)
		q.store.Del(cache.EntityKey(cache.Kind(item.Kind), item.EntityID))
		if realID != "" {
			var o cache.Overlay // zero value: no longer temporary, nothing pending, no error
			for k, v := range o.Patch() {
				result[k] = v
			}
			q.store.Set(cache.EntityKey(cache.Kind(item.Kind), realID), result, cache.Kind(item.Kind))
		}
		q.bus.Publish(Event{Type: EventCreated, Item: *item, TempID: item.EntityID, RealID: realID, Result: result})

	case ItemUpdate:
		key := cache.EntityKey(cache.Kind(item.Kind), item.EntityID)
		q.patchEntity(key, item.Kind, result, func(o *cache.Overlay) {
			o.ClearSyncState()
		})
		q.bus.Publish(Event{Type: EventUpdated, Item: *item, RealID: item.EntityID, Result: result})

	case ItemDelete:
		q.store.Del(cache.EntityKey(cache.Kind(item.Kind), item.EntityID))
		q.bus.Publish(Event{Type: EventDeleted, Item: *item, RealID: item.EntityID})
	}
}
