// Command server wires every component (C1-C13) into one process and
// serves the HTTP surface, grounded on erauner12-toolbridge-api's
// cmd/server/main.go structured-logging/graceful-shutdown shape.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mattertraffic/syncgw/cache"
	"github.com/mattertraffic/syncgw/cachemgr"
	"github.com/mattertraffic/syncgw/conflict"
	"github.com/mattertraffic/syncgw/config"
	"github.com/mattertraffic/syncgw/cron"
	"github.com/mattertraffic/syncgw/httpapi"
	"github.com/mattertraffic/syncgw/metrics"
	"github.com/mattertraffic/syncgw/ratelimit"
	"github.com/mattertraffic/syncgw/store"
	"github.com/mattertraffic/syncgw/syncqueue"
	"github.com/mattertraffic/syncgw/upstream"
	"github.com/mattertraffic/syncgw/webhook"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.With().Str("service", "syncgw").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.NodeEnv == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, webhook dedup falls back to in-memory")
			redisClient = nil
		}
	}

	syncLogRepo := store.NewSyncLogRepo(pool)
	conflictLogRepo := store.NewConflictLogRepo(pool)
	configRepo := store.NewConfigRepo(pool, cfg.EncryptionKey)

	registry := prometheus.NewRegistry()
	rec := metrics.New(registry)

	cacheStore := cache.New()

	limiter := ratelimit.New(ratelimit.Config{
		Burst:       cfg.RateLimiterBurst,
		Refill:      ratelimit.DefaultRefill,
		MinGap:      cfg.RateLimiterMinGap,
		MaxInFlight: cfg.RateLimiterMaxInFlight,
		QueueBound:  cfg.RateLimiterQueueBound,
	})

	upstreamToken := cfg.UpstreamToken
	if upstreamToken == "" {
		tok, err := configRepo.GetUpstreamToken(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("no UPSTREAM_TOKEN set and no persisted upstream token")
		}
		upstreamToken = tok
	}

	upstreamClient := upstream.New(upstream.Config{
		BaseURL: cfg.UpstreamBaseURL,
		Token:   upstreamToken,
	}, limiter, rec, log.Logger)

	manager := cachemgr.New(cacheStore, rec)

	queue := syncqueue.New(cacheStore, upstreamClient, rec, log.Logger)

	conflictEngine := conflict.New(cacheStore, upstreamClient, limiter, conflictLogRepo, log.Logger)

	deduper := webhook.NewDeduper(redisClient)
	webhookHandler := webhook.New(cacheStore, configRepo, syncLogRepo, deduper, log.Logger)

	cronRunner := cron.New(manager, upstreamClient, syncLogRepo, log.Logger)
	cronRunner.Start(ctx)

	dashboard := metrics.NewDashboardHub(rec, log.Logger)
	go dashboard.Run(ctx)

	srv := &httpapi.Server{
		Cache:           cacheStore,
		Manager:         manager,
		Limiter:         limiter,
		Upstream:        upstreamClient,
		Queue:           queue,
		Conflict:        conflictEngine,
		Metrics:         rec,
		Dashboard:       dashboard,
		Webhook:         webhookHandler,
		Cron:            cronRunner,
		Log:             log.Logger,
		Registry:        registry,
		JWTSecret:       cfg.JWTSecret,
		FrontendOrigins: cfg.FrontendOrigins,
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	queue.Stop()
	log.Info().Msg("server stopped")
}
