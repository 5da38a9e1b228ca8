package syncqueue

// Event is the typed payload published by the queue worker. Grounded on the
// teacher's control_plane/streaming/interface.go Publisher/Subscriber
// shape, realized here as a small in-process channel bus per design note
// §9 rather than kept as the teacher's logging-only stand-in — this
// system's subscribers (temp->real id rewriter, conflict persister,
// metrics recorder) need the actual payload, not just a log line.
type EventType string

const (
	EventCreated      EventType = "created"
	EventUpdated      EventType = "updated"
	EventDeleted      EventType = "deleted"
	EventItemDropped  EventType = "item:dropped"
	EventItemFailed   EventType = "item:failed"
)

type Event struct {
	Type     EventType
	Item     Item
	TempID   string
	RealID   string
	Result   map[string]any
	Cause    error
}

// Bus is a minimal multi-subscriber publish path: each subscriber gets its
// own buffered channel so a slow subscriber cannot block the others or the
// worker.
type Bus struct {
	subscribers []chan Event
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe returns a channel that receives every event published from this
// point forward. The channel is buffered; if a subscriber falls behind, new
// events are dropped for it rather than blocking the worker — events are
// for observability and cache bookkeeping, never for control flow.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, 64)
	b.subscribers = append(b.subscribers, ch)
	return ch
}

func (b *Bus) Publish(e Event) {
	for _, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
}
