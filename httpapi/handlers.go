package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mattertraffic/syncgw/cache"
	"github.com/mattertraffic/syncgw/domain"
	"github.com/mattertraffic/syncgw/ratelimit"
	"github.com/mattertraffic/syncgw/syncerr"
	"github.com/mattertraffic/syncgw/syncqueue"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusFor maps a syncerr.Kind to its HTTP status code. This is the one
// place in the system that translates the error taxonomy to wire status.
func StatusFor(err error) int {
	switch syncerr.KindOf(err) {
	case syncerr.KindValidation:
		return http.StatusBadRequest
	case syncerr.KindNotFound:
		return http.StatusNotFound
	case syncerr.KindVersionMismatch:
		return http.StatusConflict
	case syncerr.KindUnauthorized:
		return http.StatusUnauthorized
	case syncerr.KindForbidden:
		return http.StatusForbidden
	case syncerr.KindRateLimited, syncerr.KindDropped:
		return http.StatusTooManyRequests
	case syncerr.KindUpstream, syncerr.KindNetwork:
		return http.StatusBadGateway
	case syncerr.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes the error response and records it into the activity
// tracker's error ring, so a failed request shows up on the operator
// dashboard alongside the metrics it degrades.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.Metrics.Activity.RecordError(err.Error())
	writeJSON(w, StatusFor(err), map[string]string{"error": err.Error()})
}

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.Limiter.Stats()
	qdepth := s.Queue.Len()

	status := "healthy"
	code := http.StatusOK
	if qdepth > syncqueue.DefaultMaxSize/2 {
		status = "degraded"
		code = http.StatusPartialContent
	}
	if stats.Dropped > 0 && qdepth >= syncqueue.DefaultMaxSize {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":      status,
		"queueDepth":  qdepth,
		"rateLimiter": stats,
	})
}

func (s *Server) handlePrometheus(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

// --- Tasks ---

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	startStr := r.URL.Query().Get("startDate")
	endStr := r.URL.Query().Get("endDate")
	start, err1 := time.Parse("2006-01-02", startStr)
	end, err2 := time.Parse("2006-01-02", endStr)
	if err1 != nil || err2 != nil || end.Before(start) {
		s.writeError(w, syncerr.New(syncerr.KindValidation, "invalid startDate/endDate range"))
		return
	}

	key := cache.CalendarKey(start, end)
	if v, ok := s.Cache.Get(key); ok {
		writeJSON(w, http.StatusOK, map[string]any{"tasks": v, "period": map[string]string{"start": startStr, "end": endStr}, "cacheHit": true})
		return
	}

	tasks, err := s.Upstream.RangeQueryTasks(r.Context(), ratelimit.PriorityDefault, start, end)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.Cache.Set(key, tasks, cache.KindDerived)
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "period": map[string]string{"start": startStr, "end": endStr}, "cacheHit": false})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	key := cache.EntityKey(cache.KindTask, id)

	if v, ok := s.Cache.Get(key); ok {
		writeJSON(w, http.StatusOK, map[string]any{"data": v, "syncStatus": syncStatusOf(v)})
		return
	}

	task, err := s.Upstream.GetTask(r.Context(), ratelimit.PriorityDefault, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.Cache.Set(key, task, cache.KindTask)
	writeJSON(w, http.StatusOK, map[string]any{"data": task, "syncStatus": "synced"})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		s.writeError(w, syncerr.New(syncerr.KindValidation, "invalid request body"))
		return
	}

	async := r.URL.Query().Get("async") != "false"
	if !async {
		task, err := taskFromMap(data)
		if err != nil {
			s.writeError(w, err)
			return
		}
		created, err := s.Upstream.CreateTask(r.Context(), ratelimit.PriorityDefault, task)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.Cache.Set(cache.EntityKey(cache.KindTask, created.ID), created, cache.KindTask)
		conflicts := s.Conflict.Check(r.Context(), created)
		_ = s.Conflict.Persist(r.Context(), created.ID, conflicts)
		writeJSON(w, http.StatusCreated, map[string]any{"data": created, "syncStatus": "synced", "conflicts": conflicts.Conflicts, "meta": map[string]string{"mode": "sync"}})
		return
	}

	tempID := s.Queue.EnqueueCreate(syncqueue.KindTask, data)
	writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"id": tempID}, "syncStatus": "pending", "meta": map[string]string{"mode": "async"}})
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.writeError(w, syncerr.New(syncerr.KindValidation, "invalid request body"))
		return
	}

	if expected := r.URL.Query().Get("expectedUpdatedAt"); expected != "" {
		key := cache.EntityKey(cache.KindTask, id)
		if v, ok := s.Cache.Get(key); ok {
			if current, ok := v.(domain.Task); ok && !current.UpdatedAt.IsZero() && current.UpdatedAt.Format(time.RFC3339) != expected {
				s.writeError(w, syncerr.New(syncerr.KindVersionMismatch, "task was updated by another writer"))
				return
			}
		}
	}

	async := r.URL.Query().Get("async") != "false"
	if !async {
		updated, err := s.Upstream.UpdateTask(r.Context(), ratelimit.PriorityDefault, id, patch)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.Cache.Set(cache.EntityKey(cache.KindTask, id), updated, cache.KindTask)
		conflicts := s.Conflict.Check(r.Context(), updated)
		_ = s.Conflict.Persist(r.Context(), id, conflicts)
		writeJSON(w, http.StatusOK, map[string]any{"data": updated, "syncStatus": "synced", "conflicts": conflicts.Conflicts})
		return
	}

	if err := s.Queue.EnqueueUpdate(syncqueue.KindTask, id, patch); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": id}, "syncStatus": "pending"})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	async := r.URL.Query().Get("async") != "false"

	if !async {
		if err := s.Upstream.ArchiveTask(r.Context(), ratelimit.PriorityDefault, id); err != nil {
			s.writeError(w, err)
			return
		}
		s.Cache.Del(cache.EntityKey(cache.KindTask, id))
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": id}})
		return
	}

	if err := s.Queue.EnqueueDelete(syncqueue.KindTask, id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": id}, "syncStatus": "pending"})
}

func (s *Server) handleCheckConflicts(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		s.writeError(w, syncerr.New(syncerr.KindValidation, "invalid request body"))
		return
	}
	task, err := taskFromMap(data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	result := s.Conflict.Check(r.Context(), task)
	writeJSON(w, http.StatusOK, map[string]any{"conflicts": result.Conflicts, "meta": map[string]string{"method": string(result.Method)}})
}

func taskFromMap(data map[string]any) (domain.Task, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return domain.Task{}, syncerr.Wrap(syncerr.KindValidation, "invalid task payload", err)
	}
	var t domain.Task
	if err := json.Unmarshal(b, &t); err != nil {
		return domain.Task{}, syncerr.Wrap(syncerr.KindValidation, "invalid task payload", err)
	}
	return t, nil
}

func syncStatusOf(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return "synced"
	}
	if pending, _ := m["_pendingSync"].(bool); pending {
		return "pending"
	}
	if errFlag, _ := m["_syncError"].(bool); errFlag {
		return "error"
	}
	return "synced"
}

// --- Metrics ---

func (s *Server) handleMetricsCache(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Metrics.CacheSnapshot())
}

func (s *Server) handleMetricsLatency(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Metrics.LatencySnapshot())
}

func (s *Server) handleMetricsQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Metrics.Queue.Snapshot())
}

func (s *Server) handleMetricsDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Metrics.DashboardSnapshot())
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleDashboardStream(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warn().Err(err).Msg("dashboard stream upgrade failed")
		return
	}
	if !s.Dashboard.Register(conn) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many dashboard connections"))
		conn.Close()
		return
	}
}

// --- Admin ---

func (s *Server) handleAdminCacheClear(w http.ResponseWriter, r *http.Request) {
	s.Cache.InvalidatePattern("*")
	s.Queue.ClearQueue()
	s.Metrics.ResetKind("all")
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (s *Server) handleAdminCacheWarmup(w http.ResponseWriter, r *http.Request) {
	s.Cron.RunWarmup(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"triggered": true})
}

func (s *Server) handleAdminCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Pattern string `json:"pattern"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Pattern == "" {
		s.writeError(w, syncerr.New(syncerr.KindValidation, "pattern is required"))
		return
	}
	n := s.Cache.InvalidatePattern(body.Pattern)
	writeJSON(w, http.StatusOK, map[string]int{"invalidated": n})
}
