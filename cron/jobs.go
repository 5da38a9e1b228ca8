// Package cron implements C9: the two periodic jobs that keep the cache
// warm without interactive callers ever paying a cold-fetch cost. The
// ticker-loop shape is grounded on the teacher's coordination/janitor.go,
// stripped of its leader-election/epoch-fencing machinery — this system has
// exactly one process, so the only coordination left to do is "don't start
// a second run while one is still in flight", handled locally with
// atomic.Bool rather than a distributed lock.
package cron

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mattertraffic/syncgw/cachemgr"
)

const (
	RefreshInterval = 30 * time.Minute
	WarmupHour      = 6 // local time, SPEC_FULL.md §4.9
)

// ScheduledLogger is the narrow slice of C11 sync-log persistence the
// runner needs to record a method=scheduled row per cron run.
type ScheduledLogger interface {
	AppendScheduled(ctx context.Context, entityKind, status string, itemsProcessed, itemsFailed int, startedAt, endedAt time.Time, errMsg string) error
}

// Runner owns both schedules. A job is skipped entirely (never queued) if
// its previous run is still in flight, per §4.9.
type Runner struct {
	manager     *cachemgr.Manager
	source      cachemgr.Source
	syncLogRepo ScheduledLogger
	log         zerolog.Logger

	refreshRunning atomic.Bool
	warmupRunning  atomic.Bool
}

func New(manager *cachemgr.Manager, source cachemgr.Source, syncLogRepo ScheduledLogger, log zerolog.Logger) *Runner {
	return &Runner{manager: manager, source: source, syncLogRepo: syncLogRepo, log: log}
}

// appendScheduled records the run outcome as a method=scheduled sync_logs
// row, alongside the zerolog line above. Failures to write the log are only
// logged, never surfaced to the caller — a missing audit row must not make
// an otherwise-successful cache refresh look like a failure.
func (r *Runner) appendScheduled(ctx context.Context, entityKind string, runErr error, startedAt, endedAt time.Time) {
	status := "success"
	itemsFailed := 0
	if runErr != nil {
		status = "failed"
		itemsFailed = 1
	}
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	if err := r.syncLogRepo.AppendScheduled(ctx, entityKind, status, 1, itemsFailed, startedAt, endedAt, errMsg); err != nil {
		r.log.Error().Err(err).Msg("cron: failed to append scheduled sync log")
	}
}

// Start launches both schedules as goroutines tied to ctx's lifetime.
func (r *Runner) Start(ctx context.Context) {
	go r.refreshLoop(ctx)
	go r.warmupLoop(ctx)
}

func (r *Runner) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunRefresh(ctx)
		}
	}
}

func (r *Runner) warmupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	lastRun := time.Time{}
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if now.Hour() == WarmupHour && now.YearDay() != lastRun.YearDay() {
				lastRun = now
				r.RunWarmup(ctx)
			}
		}
	}
}

// RunRefresh re-fetches the hot working set (current week of tasks, all
// Members, all Teams) that is most likely to expire soon. Exported so it can
// be run by hand as well as by the schedule above; no HTTP route calls it.
func (r *Runner) RunRefresh(ctx context.Context) {
	if !r.refreshRunning.CompareAndSwap(false, true) {
		r.log.Debug().Msg("cron: refresh already running, skipping this tick")
		return
	}
	defer r.refreshRunning.Store(false)

	started := time.Now()
	err := r.manager.Refresh(ctx, r.source)
	ended := time.Now()
	r.appendScheduled(ctx, "refresh", err, started, ended)
	if err != nil {
		r.log.Error().Err(err).Dur("elapsed", ended.Sub(started)).Msg("cron: refresh failed")
		return
	}
	r.log.Info().Dur("elapsed", ended.Sub(started)).Msg("cron: refresh complete")
}

// RunWarmup runs the full Cache Manager warmup. Exposed for the manual
// /admin/cache/warmup trigger as well as the daily schedule.
func (r *Runner) RunWarmup(ctx context.Context) {
	if !r.warmupRunning.CompareAndSwap(false, true) {
		r.log.Debug().Msg("cron: warmup already running, skipping this tick")
		return
	}
	defer r.warmupRunning.Store(false)

	started := time.Now()
	err := r.manager.Warmup(ctx, r.source)
	ended := time.Now()
	r.appendScheduled(ctx, "warmup", err, started, ended)
	if err != nil {
		r.log.Error().Err(err).Dur("elapsed", ended.Sub(started)).Msg("cron: warmup failed")
		return
	}
	r.log.Info().Dur("elapsed", ended.Sub(started)).Msg("cron: warmup complete")
}
