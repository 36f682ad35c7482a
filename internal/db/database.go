package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Database wraps the Postgres connection pool. One pool per process; each
// sync run borrows connections from it and returns them on every exit path.
type Database struct {
	pool *pgxpool.Pool
}

// NewDatabase connects to Postgres using the given connection string and
// verifies the connection with a ping.
func NewDatabase(ctx context.Context, dsn string) (*Database, error) {
	if dsn == "" {
		return nil, errors.New("database connection string is required")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{pool: pool}, nil
}

// Pool exposes the underlying pool for repositories.
func (d *Database) Pool() *pgxpool.Pool {
	if d == nil {
		return nil
	}
	return d.pool
}

// Close releases the connection pool.
func (d *Database) Close() {
	if d != nil && d.pool != nil {
		d.pool.Close()
		d.pool = nil
	}
}
