package ratelimit

import (
	"container/heap"
	"context"
	"time"
)

// task is one admission request waiting for a scheduling slot.
type task struct {
	priority int
	enqueued time.Time
	seq      uint64 // FIFO tie-break, monotonically increasing admission order
	ctx      context.Context
	done     chan struct{} // closed once admitted or dropped
	dropped  bool
}

// effectivePriority applies the teacher's anti-starvation aging formula,
// adapted for the spec's higher-wins convention: waiting for agingFactor
// raises a task's effective priority by one point, so a long-waiting
// low-priority task eventually outranks a fresh high-priority one.
func (t *task) effectivePriority(now time.Time) float64 {
	waited := now.Sub(t.enqueued)
	return float64(t.priority) + waited.Seconds()/agingFactor.Seconds()
}

// taskHeap implements container/heap.Interface as a max-heap on effective
// priority (higher first), ties broken by admission order (lower seq first).
type taskHeap struct {
	items []*task
	now   func() time.Time
}

func (h taskHeap) Len() int { return len(h.items) }

func (h taskHeap) Less(i, j int) bool {
	now := h.now()
	pi, pj := h.items[i].effectivePriority(now), h.items[j].effectivePriority(now)
	if pi != pj {
		return pi > pj
	}
	return h.items[i].seq < h.items[j].seq
}

func (h taskHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *taskHeap) Push(x any) { h.items = append(h.items, x.(*task)) }

func (h *taskHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return item
}

// lowestIndex returns the index of the queued task with the smallest
// effective priority, used for the overflow drop policy.
func (h *taskHeap) lowestIndex() int {
	if len(h.items) == 0 {
		return -1
	}
	now := h.now()
	lowest := 0
	lowestP := h.items[0].effectivePriority(now)
	for i := 1; i < len(h.items); i++ {
		p := h.items[i].effectivePriority(now)
		if p < lowestP {
			lowest, lowestP = i, p
		}
	}
	return lowest
}

func newTaskHeap() *taskHeap {
	h := &taskHeap{now: time.Now}
	heap.Init(h)
	return h
}
