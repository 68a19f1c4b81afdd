package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig sizes the connection pool. Zero values fall back to the
// package defaults.
type PoolConfig struct {
	DSN      string
	MaxConns int32
	MinConns int32
	// StatementTimeout is applied per session when positive.
	StatementTimeout time.Duration
}

const (
	defaultMaxConns    = 8
	defaultMinConns    = 1
	healthCheckPeriod  = 30 * time.Second
	maxConnIdleTimeout = 5 * time.Minute
)

func (c PoolConfig) pgxConfig() (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(c.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = defaultMaxConns
	if c.MaxConns > 0 {
		cfg.MaxConns = c.MaxConns
	}
	cfg.MinConns = min(defaultMinConns, cfg.MaxConns)
	if c.MinConns > 0 {
		cfg.MinConns = min(c.MinConns, cfg.MaxConns)
	}
	cfg.HealthCheckPeriod = healthCheckPeriod
	cfg.MaxConnIdleTime = maxConnIdleTimeout
	if c.StatementTimeout > 0 {
		cfg.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(c.StatementTimeout.Milliseconds())
	}
	return cfg, nil
}

// Connect opens a pool and pings it once.
func Connect(ctx context.Context, c PoolConfig) (*pgxpool.Pool, error) {
	cfg, err := c.pgxConfig()
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
