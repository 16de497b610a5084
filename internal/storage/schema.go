package storage

import (
	"context"
	"fmt"
)

// UsersTable is the only table the service owns.
const UsersTable = "users"

const createUsersTable = `CREATE TABLE IF NOT EXISTS users (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
)`

// EnsureSchema creates the users table if it does not exist. It is
// idempotent and may run concurrently from any number of connections.
func EnsureSchema(ctx context.Context, conn *Conn) error {
	if err := conn.Exec(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create %s table: %w", UsersTable, err)
	}
	return nil
}

// InitSchema ensures the schema using a connection leased from pool.
func InitSchema(ctx context.Context, pool Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return EnsureSchema(ctx, conn)
}
