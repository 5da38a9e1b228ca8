package metrics

import "time"

// DashboardSnapshot is the complete operator-facing metrics view exposed by
// GET /metrics/dashboard and pushed periodically over the websocket stream.
// Shape grounded on the teacher's control_plane/api_dashboard.go
// DashboardMetrics struct, narrowed from a multi-tenant/multi-cluster
// picture to this system's single upstream workspace.
type DashboardSnapshot struct {
	Cache     CacheSnapshot    `json:"cache"`
	Latency   LatencySnapshots `json:"latency"`
	Queue     QueueSnapshot    `json:"queue"`
	Activity  ActivitySnapshot `json:"activity"`
	Timestamp int64            `json:"timestamp"`
}

func (r *Recorder) DashboardSnapshot() DashboardSnapshot {
	return DashboardSnapshot{
		Cache:     r.CacheSnapshot(),
		Latency:   r.LatencySnapshot(),
		Queue:     r.Queue.Snapshot(),
		Activity:  r.Activity.Snapshot(),
		Timestamp: time.Now().Unix(),
	}
}
