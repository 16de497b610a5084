// Package registry runs the registration sequence: lease a pooled
// connection, ensure the users table, mint an id, insert the record and read
// the name back.
package registry

import (
	"context"

	"namereg/internal/errors"
	"namereg/internal/identity"
	"namereg/internal/storage"
	"namereg/internal/tracing"
)

// Register performs one registration on a connection leased from pool. The
// lease is released on every path. Failures are *errors.Error tagged with
// the step that failed.
func Register(ctx context.Context, pool storage.Pool, ids identity.Generator, name string) (rec storage.Record, err error) {
	ctx, span := tracing.StartSpan(ctx, "registry.register")
	defer func() { tracing.EndSpan(span, err) }()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return storage.Record{}, errors.Pool(err)
	}
	defer conn.Release()

	if err := storage.EnsureSchema(ctx, conn); err != nil {
		return storage.Record{}, errors.Schema(err)
	}

	rec = storage.Record{ID: ids.NewID(), Name: name}
	span.SetAttributes(map[string]string{"record.id": rec.ID})

	if err := storage.InsertRecord(ctx, conn, rec); err != nil {
		return storage.Record{}, errors.Write(err)
	}

	stored, err := storage.LookupName(ctx, conn, rec.ID)
	if err != nil {
		return storage.Record{}, errors.Read(err)
	}
	rec.Name = stored
	return rec, nil
}
