package metrics

import "sync/atomic"

// QueueMetrics tracks the Sync Queue's counters (SPEC_FULL.md §4.7/§4.10).
type QueueMetrics struct {
	queued, processed, failed, retries atomic.Int64
	totalProcessingNanos               atomic.Int64
}

type QueueSnapshot struct {
	Queued             int64   `json:"queued"`
	Processed          int64   `json:"processed"`
	Failed             int64   `json:"failed"`
	Retries            int64   `json:"retries"`
	AvgProcessingMillis float64 `json:"avgProcessingMs"`
}

func (q *QueueMetrics) IncQueued()  { q.queued.Add(1) }
func (q *QueueMetrics) DecQueued()  { q.queued.Add(-1) }
func (q *QueueMetrics) IncRetries() { q.retries.Add(1) }

func (q *QueueMetrics) RecordProcessed(nanos int64, failed bool) {
	q.processed.Add(1)
	q.totalProcessingNanos.Add(nanos)
	if failed {
		q.failed.Add(1)
	}
}

func (q *QueueMetrics) Snapshot() QueueSnapshot {
	processed := q.processed.Load()
	avg := 0.0
	if processed > 0 {
		avg = float64(q.totalProcessingNanos.Load()) / float64(processed) / 1e6
	}
	return QueueSnapshot{
		Queued:              q.queued.Load(),
		Processed:           processed,
		Failed:              q.failed.Load(),
		Retries:             q.retries.Load(),
		AvgProcessingMillis: avg,
	}
}

func (q *QueueMetrics) Reset() {
	q.queued.Store(0)
	q.processed.Store(0)
	q.failed.Store(0)
	q.retries.Store(0)
	q.totalProcessingNanos.Store(0)
}
