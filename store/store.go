// Package store defines the boundary between the prefetch planner and
// the storage layer. The planner decides which relation paths to
// request; a Store implementation decides how to fetch them.
package store

import (
	"context"
	"errors"

	"github.com/MaxDude132/prefetcher/relpath"
	"github.com/MaxDude132/prefetcher/schema"
)

// ErrNotBatchable is returned by FetchRelated when the records argument
// cannot be batched against, typically because a single non-collection
// value was handed to a collection operation.
var ErrNotBatchable = errors.New("store: argument is not a batchable collection")

// Query is a lazy retrieval handle over one model's records. Methods
// accumulate fetch instructions without touching the store; Materialize
// executes them.
//
// Implementations must treat the handle as immutable: EagerJoin and
// BatchedFetch return a derived handle and leave the receiver usable.
type Query interface {
	// Model returns the record type this handle retrieves.
	Model() *schema.Model

	// EagerJoin requests that the named to-one relation paths be
	// fetched in the same retrieval as the root records.
	EagerJoin(paths ...string) Query

	// BatchedFetch requests that each rel be fetched as a separate
	// grouped retrieval keyed by parent identity, one per distinct
	// path. Rels may carry an alias and a filter.
	BatchedFetch(rels ...relpath.Rel) Query

	// Materialize executes the accumulated plan and returns the
	// populated records.
	Materialize(ctx context.Context) (*Collection, error)
}

// Store is the retrieval adapter consumed by the planner.
type Store interface {
	// Query returns a lazy handle over all records of model.
	Query(model *schema.Model) Query

	// FetchRelated populates the given relation paths on records that
	// are already materialized, issuing one grouped retrieval per
	// distinct path. Relations already present on a record are left
	// untouched. Returns ErrNotBatchable when records cannot be
	// batched against.
	FetchRelated(ctx context.Context, records []*Record, rels ...relpath.Rel) error
}
