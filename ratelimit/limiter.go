// Package ratelimit implements C1: a token-bucket + minimum-gap +
// max-concurrency admission gate for every call this system makes to the
// upstream. The reservoir is a golang.org/x/time/rate.Limiter (teacher:
// control_plane/scheduler/limiter.go); admission ordering is a
// container/heap priority queue with anti-starvation aging (teacher:
// control_plane/scheduler/queue.go), generalized from per-node/per-tenant
// limiters down to the single upstream this system fronts.
package ratelimit

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/mattertraffic/syncgw/syncerr"
)

type Config struct {
	Burst       int
	Refill      time.Duration
	MinGap      time.Duration
	MaxInFlight int
	QueueBound  int
}

func DefaultConfig() Config {
	return Config{
		Burst:       DefaultBurst,
		Refill:      DefaultRefill,
		MinGap:      DefaultMinGap,
		MaxInFlight: DefaultMaxInFlight,
		QueueBound:  DefaultQueueBound,
	}
}

type Limiter struct {
	cfg       Config
	reservoir *rate.Limiter

	mu        sync.Mutex
	q         *taskHeap
	seq       uint64
	lastStart time.Time
	inFlight  int

	wake chan struct{}
	stop chan struct{}

	queued, running, completed, failed, dropped atomic.Int64
}

func New(cfg Config) *Limiter {
	if cfg.Burst <= 0 {
		cfg = DefaultConfig()
	}
	l := &Limiter{
		cfg:       cfg,
		reservoir: rate.NewLimiter(rate.Limit(float64(cfg.Burst)/cfg.Refill.Seconds()), cfg.Burst),
		q:         newTaskHeap(),
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}
	go l.dispatchLoop()
	return l
}

func (l *Limiter) Close() { close(l.stop) }

func (l *Limiter) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// dispatchLoop is the single owner of the heap and the admission state; all
// mutation happens under l.mu but only from this goroutine or admit/release,
// matching the "owned by one component, guarded by a single mutex" policy in
// SPEC_FULL.md §5.
func (l *Limiter) dispatchLoop() {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-l.wake:
			l.tryAdmit()
		case <-ticker.C:
			l.tryAdmit()
		}
	}
}

func (l *Limiter) tryAdmit() {
	for {
		l.mu.Lock()
		if l.q.Len() == 0 {
			l.mu.Unlock()
			return
		}
		if l.inFlight >= l.cfg.MaxInFlight {
			l.mu.Unlock()
			return
		}
		now := time.Now()
		if !l.lastStart.IsZero() && now.Sub(l.lastStart) < l.cfg.MinGap {
			l.mu.Unlock()
			return
		}
		if !l.reservoir.AllowN(now, 1) {
			l.mu.Unlock()
			return
		}
		t := heap.Pop(l.q).(*task)
		l.lastStart = now
		l.inFlight++
		l.queued.Add(-1)
		l.running.Add(1)
		l.mu.Unlock()

		close(t.done)
	}
}

func (l *Limiter) release() {
	l.mu.Lock()
	l.inFlight--
	l.mu.Unlock()
	l.running.Add(-1)
	l.signal()
}

// admit blocks the caller until a slot is granted, the context is cancelled,
// or the task is dropped for queue overflow.
func (l *Limiter) admit(ctx context.Context, priority int) (*task, error) {
	t := &task{
		priority: priority,
		enqueued: time.Now(),
		ctx:      ctx,
		done:     make(chan struct{}),
	}

	l.mu.Lock()
	if l.q.Len() >= l.cfg.QueueBound {
		idx := l.q.lowestIndex()
		if idx >= 0 && l.q.items[idx].effectivePriority(time.Now()) < t.effectivePriority(time.Now()) {
			victim := heap.Remove(l.q, idx).(*task)
			victim.dropped = true
			close(victim.done)
			l.queued.Add(-1)
			l.dropped.Add(1)
			l.seq++
			t.seq = l.seq
			heap.Push(l.q, t)
			l.queued.Add(1)
		} else {
			l.mu.Unlock()
			l.dropped.Add(1)
			return nil, syncerr.New(syncerr.KindDropped, "rate limiter queue is full")
		}
	} else {
		l.seq++
		t.seq = l.seq
		heap.Push(l.q, t)
		l.queued.Add(1)
	}
	l.mu.Unlock()
	l.signal()

	select {
	case <-t.done:
		if t.dropped {
			return nil, syncerr.New(syncerr.KindDropped, "rate limiter dropped queued task for a higher-priority arrival")
		}
		return t, nil
	case <-ctx.Done():
		l.mu.Lock()
		for i, other := range l.q.items {
			if other == t {
				heap.Remove(l.q, i)
				l.queued.Add(-1)
				break
			}
		}
		l.mu.Unlock()
		return nil, syncerr.New(syncerr.KindCancelled, "rate limiter wait cancelled")
	}
}

// Schedule runs fn once a slot is admitted under the reservoir, minimum-gap
// and max-concurrency constraints, respecting priority. It cannot be a
// method with its own type parameter, so it is a package-level generic
// function taking the limiter as its first argument.
func Schedule[T any](ctx context.Context, l *Limiter, priority int, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if _, err := l.admit(ctx, priority); err != nil {
		return zero, err
	}
	defer l.release()

	result, err := fn(ctx)
	if err != nil {
		l.failed.Add(1)
		return zero, err
	}
	l.completed.Add(1)
	return result, nil
}

func (l *Limiter) Stats() Stats {
	return Stats{
		Queued:    l.queued.Load(),
		Running:   l.running.Load(),
		Completed: l.completed.Load(),
		Failed:    l.failed.Load(),
		Dropped:   l.dropped.Load(),
		Reservoir: float64(l.reservoir.Tokens()),
	}
}
