package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"namereg/internal/config"
)

// ErrAcquireTimeout is returned by Acquire when no connection became free
// within the configured acquire timeout.
var ErrAcquireTimeout = errors.New("timed out waiting for a pooled connection")

// Pool hands out exclusive connection leases.
type Pool interface {
	Acquire(ctx context.Context) (*Conn, error)
}

// DB is the shared connection pool over the single database file.
// It is constructed once at startup and shared by reference.
type DB struct {
	conn           *sql.DB
	logger         *slog.Logger
	dbPath         string
	driver         string
	acquireTimeout time.Duration
}

// Open opens or creates the database file described by cfg and sizes the
// pool. Every pooled connection gets the same pragmas through the DSN.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	d, err := lookupDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open(d.name, d.dsn(cfg.Path, cfg.BusyTimeoutMs))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime())

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("Opened database",
		"path", cfg.Path,
		"driver", d.name,
		"max_open_conns", cfg.MaxOpenConns,
	)

	return &DB{
		conn:           conn,
		logger:         logger,
		dbPath:         cfg.Path,
		driver:         d.name,
		acquireTimeout: cfg.AcquireTimeout(),
	}, nil
}

// Acquire leases one connection from the pool. It waits while all
// connections are in use, up to the acquire timeout (0 waits for ctx only).
// The caller must Release the returned Conn on every path.
func (db *DB) Acquire(ctx context.Context) (*Conn, error) {
	waitCtx := ctx
	if db.acquireTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, db.acquireTimeout)
		defer cancel()
	}

	c, err := db.conn.Conn(waitCtx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrAcquireTimeout, db.acquireTimeout)
		}
		return nil, err
	}
	return newConn(c), nil
}

// Close closes every pooled connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.dbPath
}

// Driver returns the name of the SQL driver in use.
func (db *DB) Driver() string {
	return db.driver
}

// PoolStats is a snapshot of pool usage.
type PoolStats struct {
	MaxOpen      int
	Open         int
	InUse        int
	Idle         int
	WaitCount    int64
	WaitDuration time.Duration
}

// Stats returns current pool statistics.
func (db *DB) Stats() PoolStats {
	s := db.conn.Stats()
	return PoolStats{
		MaxOpen:      s.MaxOpenConnections,
		Open:         s.OpenConnections,
		InUse:        s.InUse,
		Idle:         s.Idle,
		WaitCount:    s.WaitCount,
		WaitDuration: s.WaitDuration,
	}
}
