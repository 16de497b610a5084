// Package identity generates the record identifiers used as primary keys.
package identity

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces practically unique textual identifiers.
type Generator interface {
	NewID() string
}

// UUIDGenerator returns random (version 4) UUIDs in canonical form.
type UUIDGenerator struct{}

// NewID implements Generator.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// SequenceGenerator returns prefix-1, prefix-2, ... and is safe for
// concurrent use. Intended for tests that need predictable ids.
type SequenceGenerator struct {
	Prefix string
	n      atomic.Uint64
}

// NewID implements Generator.
func (g *SequenceGenerator) NewID() string {
	return fmt.Sprintf("%s-%d", g.Prefix, g.n.Add(1))
}

// FixedGenerator always returns the same id. Two registrations with a
// FixedGenerator collide on the primary key, which tests use to force a
// write failure.
type FixedGenerator string

// NewID implements Generator.
func (g FixedGenerator) NewID() string {
	return string(g)
}

// Valid reports whether id parses as a UUID.
func Valid(id string) bool {
	return uuid.Validate(id) == nil
}
