package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/mattertraffic/syncgw/cache"
	"github.com/mattertraffic/syncgw/cachemgr"
	"github.com/mattertraffic/syncgw/conflict"
	"github.com/mattertraffic/syncgw/cron"
	"github.com/mattertraffic/syncgw/domain"
	"github.com/mattertraffic/syncgw/metrics"
	"github.com/mattertraffic/syncgw/ratelimit"
	"github.com/mattertraffic/syncgw/syncqueue"
	"github.com/mattertraffic/syncgw/upstream"
	"github.com/mattertraffic/syncgw/webhook"
)

// Server wires every component to the chi router (C12). All fields are
// exported and set by cmd/server at construction.
type Server struct {
	Cache    *cache.Store
	Manager  *cachemgr.Manager
	Limiter  *ratelimit.Limiter
	Upstream *upstream.Client
	Queue    *syncqueue.Queue
	Conflict *conflict.Engine
	Metrics  *metrics.Recorder
	Dashboard *metrics.DashboardHub
	Webhook  *webhook.Handler
	Cron     *cron.Runner
	Log      zerolog.Logger
	Registry *prometheus.Registry

	JWTSecret      string
	FrontendOrigins []string
}

// Router builds the full chi mux per SPEC_FULL.md §6.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.loggingMiddleware)

	corsMw := cors.New(cors.Options{
		AllowedOrigins:   s.FrontendOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	r.Use(corsMw.Handler)

	// Webhook ingest is unauthenticated (signature-verified instead) and
	// must never sit behind the bearer-token middleware.
	r.With(RateLimit(DefaultAuthRateLimitConfig)).Post("/webhooks/notion", s.Webhook.ServeHTTP)

	r.Get("/monitoring/health", s.handleHealth)
	r.Get("/metrics", s.handlePrometheus)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(JWTAuth(s.JWTSecret))
		api.Use(s.trackActivity)
		api.Use(RateLimit(DefaultRateLimitConfig))

		api.Get("/tasks/calendar", s.handleCalendar)
		api.Get("/tasks/{id}", s.handleGetTask)
		api.Post("/tasks", s.handleCreateTask)
		api.Put("/tasks/{id}", s.handleUpdateTask)
		api.Delete("/tasks/{id}", s.handleDeleteTask)
		api.Post("/tasks/check-conflicts", s.handleCheckConflicts)

		api.Get("/metrics/cache", s.handleMetricsCache)
		api.Get("/metrics/latency", s.handleMetricsLatency)
		api.Get("/metrics/queue", s.handleMetricsQueue)
		api.Get("/metrics/dashboard", s.handleMetricsDashboard)
		api.Get("/metrics/dashboard/stream", s.handleDashboardStream)

		api.Group(func(admin chi.Router) {
			admin.Use(RequireRole(domain.RoleAdmin))
			admin.Post("/admin/cache/clear", s.handleAdminCacheClear)
			admin.Post("/admin/cache/warmup", s.handleAdminCacheWarmup)
			admin.Post("/admin/cache/invalidate", s.handleAdminCacheInvalidate)
		})
	})

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.Metrics.Activity.RecordRequest()
		s.Log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(started)).
			Msg("request")
	})
}

// trackActivity touches the activity tracker's active-user set for every
// authenticated request. Must sit inside the /api/v1 route group, after
// JWTAuth has populated the subject on this request's context — a
// top-level middleware would only ever see the pre-auth context, since
// JWTAuth's context change is visible to handlers nested inside it, not to
// callers further out in the chain.
func (s *Server) trackActivity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Metrics.Activity.TouchUser(subjectFrom(r.Context()))
		next.ServeHTTP(w, r)
	})
}
