package planner

import (
	"context"
	"errors"

	"github.com/MaxDude132/prefetcher/store"
)

// Apply executes plan against instance and returns the possibly
// transformed instance.
//
// A lazy store.Query accumulates the eager joins (skipped when the
// eager list is empty), the root node's AfterJoin hook, the batched
// fetches (requested even when empty, so the adapter can normalize its
// state), and the root node's QueryHook, in that order. The handle is
// not materialized here.
//
// Materialized records have no distinct join operation: every path in
// the plan, eager first and deduplicated by name, becomes a grouped
// fetch issued in a single FetchRelated call. Applying a path twice is
// safe but avoided. A bare record is wrapped in a one-element slice;
// a store refusing to batch against it surfaces as a ConfigError.
func (p *Planner) Apply(ctx context.Context, instance any, plan *Plan) (any, error) {
	switch v := instance.(type) {
	case store.Query:
		q := v
		if len(plan.Eager) > 0 {
			q = q.EagerJoin(plan.EagerPaths()...)
		}
		if plan.root.AfterJoin != nil {
			q = plan.root.AfterJoin(q)
		}
		q = q.BatchedFetch(plan.Batch...)
		if plan.root.QueryHook != nil {
			q = plan.root.QueryHook(q)
		}
		return q, nil

	case *store.Collection:
		if err := p.store.FetchRelated(ctx, v.Records, plan.Rels()...); err != nil {
			return nil, err
		}
		return v, nil

	case []*store.Record:
		if err := p.store.FetchRelated(ctx, v, plan.Rels()...); err != nil {
			return nil, err
		}
		return v, nil

	case *store.Record:
		err := p.store.FetchRelated(ctx, []*store.Record{v}, plan.Rels()...)
		if errors.Is(err, store.ErrNotBatchable) {
			return nil, errNotBatchable(plan.root, err)
		}
		if err != nil {
			return nil, err
		}
		return v, nil

	default:
		return nil, errUnsupportedInstance(plan.root, instance)
	}
}
