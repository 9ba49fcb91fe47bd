// Package ident provides the process-wide monotonic identifier
// generator and a UUID-backed provenance tag for values that leave the
// process (e.g. a container entry's data source).
package ident

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// counter backs Next; allocation is a single atomic increment so
// parallel pipelines never mint the same id.
var counter uint64

// ID is a process-wide monotonic identifier. Two fresh IDs are never
// equal; copies of the same ID compare and hash equal.
type ID uint64

// Next allocates a fresh, unique ID.
func Next() ID {
	return ID(atomic.AddUint64(&counter, 1))
}

// Provenance is an externally-visible tag identifying where a value
// (typically a data source produced by the recursive container stage)
// originated, independent of process-local monotonic counters.
type Provenance string

// NewProvenance mints a fresh provenance tag.
func NewProvenance() Provenance {
	return Provenance(uuid.New().String())
}
