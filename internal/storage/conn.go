package storage

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// ErrNotFound is returned by single-row reads that match nothing.
var ErrNotFound = errors.New("not found")

// ErrReleased is returned when a Conn is used after Release.
var ErrReleased = errors.New("connection already released")

// Conn is an exclusive lease on one pooled connection.
type Conn struct {
	mu       sync.Mutex
	conn     *sql.Conn
	released bool
}

func newConn(c *sql.Conn) *Conn {
	return &Conn{conn: c}
}

// Release returns the connection to the pool. Safe to call more than once.
func (c *Conn) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return
	}
	c.released = true
	c.conn.Close()
}

func (c *Conn) raw() (*sql.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.released {
		return nil, ErrReleased
	}
	return c.conn, nil
}

// Exec runs a statement that returns no rows.
func (c *Conn) Exec(ctx context.Context, stmt string, args ...any) error {
	conn, err := c.raw()
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, stmt, args...)
	return err
}

// QueryOne runs a query expected to return a single row and scans it into
// dest. No rows yields ErrNotFound.
func (c *Conn) QueryOne(ctx context.Context, stmt string, args []any, dest ...any) error {
	conn, err := c.raw()
	if err != nil {
		return err
	}
	err = conn.QueryRowContext(ctx, stmt, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
