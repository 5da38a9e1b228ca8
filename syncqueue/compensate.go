package syncqueue

import (
	"github.com/mattertraffic/syncgw/cache"
)

// compensate is the single rollback state machine referenced by design note
// §9: once an item has exhausted retries (or failed terminally), the
// optimistic overlay it left in the cache can no longer be trusted and must
// be unwound so a reader never observes a write that will never happen.
func (q *Queue) compensate(item *Item, cause error) {
	key := cache.EntityKey(cache.Kind(item.Kind), item.EntityID)

	switch item.Type {
	case ItemCreate:
		// The entity never existed upstream; the optimistic temp row is a
		// dead end and must be removed rather than left dangling.
		q.store.Del(key)

	case ItemUpdate:
		// The entity still exists upstream in its pre-write state. Leave the
		// cached copy but flag it so readers and the UI know the last write
		// did not land.
		q.patchEntity(key, item.Kind, nil, func(o *cache.Overlay) {
			o.MarkSyncError(cause.Error())
		})

	case ItemDelete:
		// The delete never reached upstream, so the entity still exists
		// there. Clearing _deleted makes it reappear in reads alongside the
		// error flag, rather than staying hidden behind a delete that never
		// landed.
		q.patchEntity(key, item.Kind, nil, func(o *cache.Overlay) {
			o.Deleted = false
			o.MarkSyncError(cause.Error())
		})
	}
}
