package conflict

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mattertraffic/syncgw/cache"
	"github.com/mattertraffic/syncgw/domain"
	"github.com/mattertraffic/syncgw/ratelimit"
)

// RangeQuerier is the subset of the upstream client the engine needs,
// kept narrow so tests can fake it without standing up a real HTTP client.
type RangeQuerier interface {
	RangeQueryTasks(ctx context.Context, priority int, start, end time.Time) ([]domain.Task, error)
}

// Persister is the subset of the store the engine needs for the atomic
// replace described in SPEC_FULL.md §4.6.
type Persister interface {
	ReplaceConflicts(ctx context.Context, taskID string, records []Record) error
}

type Engine struct {
	cache     *cache.Store
	upstream  RangeQuerier
	limiter   *ratelimit.Limiter
	persister Persister
	log       zerolog.Logger
	now       func() time.Time
}

func New(store *cache.Store, upstream RangeQuerier, limiter *ratelimit.Limiter, persister Persister, log zerolog.Logger) *Engine {
	return &Engine{cache: store, upstream: upstream, limiter: limiter, persister: persister, log: log, now: time.Now}
}

// Check sources a candidate pool via the hybrid strategy and evaluates the
// rule set against it.
func (e *Engine) Check(ctx context.Context, t domain.Task) Result {
	pool, method := e.sourcePool(ctx, t.WorkPeriod)
	if method == MethodNone {
		return Result{Conflicts: nil, Method: MethodNone}
	}
	return Result{Conflicts: Evaluate(t, pool, e.now()), Method: method}
}

// sourcePool implements the hybrid, single-knob data sourcing strategy: the
// hot range cache key first, the rate-limited upstream range query second
// (without backfilling the cache from that call), "none" on upstream
// failure.
func (e *Engine) sourcePool(ctx context.Context, period domain.WorkPeriod) ([]domain.Task, Method) {
	if period.StartDate == nil || period.EndDate == nil {
		return nil, MethodNone
	}

	key := cache.CalendarKey(*period.StartDate, *period.EndDate)
	if v, ok := e.cache.Get(key); ok {
		if tasks, ok := v.([]domain.Task); ok {
			return tasks, MethodCache
		}
	}

	tasks, err := e.upstream.RangeQueryTasks(ctx, ratelimit.PriorityHigh, *period.StartDate, *period.EndDate)
	if err != nil {
		e.log.Warn().Err(err).Msg("conflict engine: upstream range query failed, reporting method=none")
		return nil, MethodNone
	}
	return tasks, MethodHybrid
}

// Persist replaces the task's conflict set atomically. When detection
// returned no conflicts but the triggering operation changed dates or
// members, existing persisted conflicts for the task are still cleared.
func (e *Engine) Persist(ctx context.Context, taskID string, result Result) error {
	return e.persister.ReplaceConflicts(ctx, taskID, result.Conflicts)
}
