package cachemgr

import (
	"context"
	"errors"
	"time"

	"github.com/mattertraffic/syncgw/cache"
	"github.com/mattertraffic/syncgw/domain"
	"github.com/mattertraffic/syncgw/ratelimit"
)

// warmupPast and warmupFuture bound the calendar range Warmup pre-populates
// (SPEC_FULL.md §4.5: [today-30d, today+60d]).
const (
	warmupPast   = 30 * 24 * time.Hour
	warmupFuture = 60 * 24 * time.Hour
)

// Source is the subset of the Upstream Client Warmup needs, kept narrow so
// cachemgr never imports the upstream package directly.
type Source interface {
	RangeQueryTasks(ctx context.Context, priority int, start, end time.Time) ([]domain.Task, error)
	ListByKind(ctx context.Context, priority int, kind string) ([]map[string]any, error)
}

// Warmup populates the working set described in §4.5, entirely through the
// Rate Limiter at low priority so it never competes with interactive
// traffic. A single entity kind failing does not abort the others; errors
// are collected and returned together.
func (m *Manager) Warmup(ctx context.Context, src Source) error {
	start := time.Now().Add(-warmupPast)
	end := time.Now().Add(warmupFuture)

	var errs []error

	tasks, err := src.RangeQueryTasks(ctx, ratelimit.PriorityLow, start, end)
	if err != nil {
		errs = append(errs, err)
	} else {
		m.store.Set(cache.CalendarKey(start, end), tasks, cache.KindDerived)
		for _, t := range tasks {
			m.store.Set(cache.EntityKey(cache.KindTask, t.ID), t, cache.KindTask)
		}
	}

	for kind, ck := range map[string]cache.Kind{
		"member":  cache.KindMember,
		"team":    cache.KindTeam,
		"project": cache.KindProject,
		"client":  cache.KindClient,
	} {
		records, err := src.ListByKind(ctx, ratelimit.PriorityLow, kind)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, rec := range records {
			id, _ := rec["id"].(string)
			if id == "" {
				continue
			}
			m.store.Set(cache.EntityKey(ck, id), rec, ck)
		}
	}

	return errors.Join(errs...)
}

// Refresh re-fetches the smaller "hot" working set that is most likely to
// expire soon: the current week of tasks plus all Members and Teams
// (SPEC_FULL.md §4.9), as opposed to Warmup's full range and entity sweep.
func (m *Manager) Refresh(ctx context.Context, src Source) error {
	now := time.Now()
	weekday := int(now.Weekday())
	weekStart := now.AddDate(0, 0, -weekday)
	weekEnd := weekStart.AddDate(0, 0, 7)

	var errs []error

	tasks, err := src.RangeQueryTasks(ctx, ratelimit.PriorityLow, weekStart, weekEnd)
	if err != nil {
		errs = append(errs, err)
	} else {
		m.store.Set(cache.CalendarKey(weekStart, weekEnd), tasks, cache.KindDerived)
		for _, t := range tasks {
			m.store.Set(cache.EntityKey(cache.KindTask, t.ID), t, cache.KindTask)
		}
	}

	for kind, ck := range map[string]cache.Kind{
		"member": cache.KindMember,
		"team":   cache.KindTeam,
	} {
		records, err := src.ListByKind(ctx, ratelimit.PriorityLow, kind)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, rec := range records {
			id, _ := rec["id"].(string)
			if id == "" {
				continue
			}
			m.store.Set(cache.EntityKey(ck, id), rec, ck)
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
