package storage

import (
	"context"
	"fmt"
)

// Record is one registered name.
type Record struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// InsertRecord writes rec. A duplicate id fails with the driver's
// constraint error.
func InsertRecord(ctx context.Context, conn *Conn, rec Record) error {
	if err := conn.Exec(ctx, "INSERT INTO users (id, name) VALUES (?, ?)", rec.ID, rec.Name); err != nil {
		return fmt.Errorf("insert record %s: %w", rec.ID, err)
	}
	return nil
}

// LookupName returns the name stored under id, or ErrNotFound.
func LookupName(ctx context.Context, conn *Conn, id string) (string, error) {
	var name string
	if err := conn.QueryOne(ctx, "SELECT name FROM users WHERE id = ?", []any{id}, &name); err != nil {
		return "", fmt.Errorf("lookup record %s: %w", id, err)
	}
	return name, nil
}

// CountRecords returns the number of rows, optionally restricted to name.
func CountRecords(ctx context.Context, conn *Conn, name string) (int, error) {
	var (
		n    int
		stmt = "SELECT COUNT(*) FROM users"
		args []any
	)
	if name != "" {
		stmt += " WHERE name = ?"
		args = append(args, name)
	}
	if err := conn.QueryOne(ctx, stmt, args, &n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}
