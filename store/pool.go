// Package store implements C11: Postgres-backed persistence for sync logs,
// conflict logs, and the single-row per-environment webhook/upstream config.
// It holds no user or refresh-token tables. Pool tuning and the upsert idiom
// are grounded on the teacher's store/postgres.go (jackc/pgx/v5 +
// pgxpool.Pool, one table per kind, ON CONFLICT upserts).
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Pool struct {
	pool *pgxpool.Pool
}

// Open connects and tunes the pool the way the teacher does for concurrent
// load: bounded max/min connections, a connection lifetime ceiling, and a
// periodic health check.
func Open(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Pool{pool: pool}, nil
}

func (p *Pool) Close() { p.pool.Close() }
