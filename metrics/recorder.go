// Package metrics implements C10: cache hit/miss counters, dual latency
// percentile rings (cache ops, upstream ops), queue metrics, and an
// activity tracker, all snapshottable for a dashboard endpoint and
// resettable by kind. Counters are additionally exported as native
// Prometheus collectors via promauto (teacher:
// control_plane/observability/metrics.go's var-block idiom) alongside the
// bespoke JSON snapshot the dashboard endpoint needs.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	cacheOpWarnThreshold    = 10 * time.Millisecond
	upstreamOpWarnThreshold = 100 * time.Millisecond
)

type Recorder struct {
	mu sync.Mutex

	hits   map[string]int64
	misses map[string]int64

	cacheLatency    *LatencyRing
	upstreamLatency *LatencyRing

	Queue    *QueueMetrics
	Activity *ActivityTracker

	promCacheHits    *prometheus.CounterVec
	promCacheMisses  *prometheus.CounterVec
	promCacheLatency prometheus.Histogram
	promUpstreamLatency prometheus.Histogram
	promQueueDepth   prometheus.Gauge
}

func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		hits:            make(map[string]int64),
		misses:          make(map[string]int64),
		cacheLatency:    NewLatencyRing(1000, cacheOpWarnThreshold),
		upstreamLatency: NewLatencyRing(1000, upstreamOpWarnThreshold),
		Queue:           &QueueMetrics{},
		Activity:        NewActivityTracker(),

		promCacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "syncgw_cache_hits_total",
			Help: "Cache hits by key prefix.",
		}, []string{"prefix"}),
		promCacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "syncgw_cache_misses_total",
			Help: "Cache misses by key prefix.",
		}, []string{"prefix"}),
		promCacheLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "syncgw_cache_op_duration_seconds",
			Help:    "Cache store operation latency.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		promUpstreamLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "syncgw_upstream_op_duration_seconds",
			Help:    "Upstream call latency as observed by the rate limiter.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		promQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "syncgw_sync_queue_depth",
			Help: "Current number of items waiting in the sync queue.",
		}),
	}
}

func (r *Recorder) RecordCache(hit bool, prefix string, d time.Duration) {
	r.mu.Lock()
	if hit {
		r.hits[prefix]++
	} else {
		r.misses[prefix]++
	}
	r.mu.Unlock()

	r.cacheLatency.Add(d)
	r.promCacheLatency.Observe(d.Seconds())
	if hit {
		r.promCacheHits.WithLabelValues(prefix).Inc()
	} else {
		r.promCacheMisses.WithLabelValues(prefix).Inc()
	}
}

func (r *Recorder) RecordUpstream(d time.Duration) {
	r.upstreamLatency.Add(d)
	r.promUpstreamLatency.Observe(d.Seconds())
}

func (r *Recorder) SetQueueDepth(n int64) {
	r.promQueueDepth.Set(float64(n))
}

type CacheSnapshot struct {
	HitsByPrefix   map[string]int64 `json:"hitsByPrefix"`
	MissesByPrefix map[string]int64 `json:"missesByPrefix"`
}

func (r *Recorder) CacheSnapshot() CacheSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	hits := make(map[string]int64, len(r.hits))
	for k, v := range r.hits {
		hits[k] = v
	}
	misses := make(map[string]int64, len(r.misses))
	for k, v := range r.misses {
		misses[k] = v
	}
	return CacheSnapshot{HitsByPrefix: hits, MissesByPrefix: misses}
}

type LatencySnapshots struct {
	Cache    LatencySnapshot `json:"cache"`
	Upstream LatencySnapshot `json:"upstream"`
}

func (r *Recorder) LatencySnapshot() LatencySnapshots {
	return LatencySnapshots{
		Cache:    r.cacheLatency.Snapshot(),
		Upstream: r.upstreamLatency.Snapshot(),
	}
}

// ResetKind clears one metrics subsystem, or all of them when kind=="all".
func (r *Recorder) ResetKind(kind string) {
	switch kind {
	case "cache":
		r.mu.Lock()
		r.hits = make(map[string]int64)
		r.misses = make(map[string]int64)
		r.mu.Unlock()
		r.cacheLatency.Reset()
	case "latency":
		r.cacheLatency.Reset()
		r.upstreamLatency.Reset()
	case "queue":
		r.Queue.Reset()
	case "all":
		r.ResetKind("cache")
		r.ResetKind("latency")
		r.ResetKind("queue")
		r.Activity.Reset()
	}
}
