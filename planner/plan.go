package planner

import (
	"github.com/MaxDude132/prefetcher/relpath"
	"github.com/MaxDude132/prefetcher/shape"
)

// Plan is the output of a planning pass: the relation paths to fetch
// eagerly and the paths to fetch batched. Within each list declared
// order is preserved and no storage path repeats; across the lists a
// path claimed by both belongs to batch.
type Plan struct {
	Eager []relpath.Rel
	Batch []relpath.Rel

	root       *shape.Node
	afterFetch []func()
}

// Rels returns the name-unique union of eager and batch paths, eager
// first. This is the order used when applying a plan to records that
// are already materialized, where both kinds become grouped fetches.
func (p *Plan) Rels() []relpath.Rel {
	out := make([]relpath.Rel, 0, len(p.Eager)+len(p.Batch))
	out = relpath.Merge(out, p.Eager)
	out = relpath.Merge(out, p.Batch)
	return out
}

// EagerPaths returns the eager traversal paths as strings.
func (p *Plan) EagerPaths() []string {
	out := make([]string, len(p.Eager))
	for i, r := range p.Eager {
		out[i] = r.Through
	}
	return out
}

// BatchPaths returns the batch storage paths as strings.
func (p *Plan) BatchPaths() []string { return relpath.Strings(p.Batch) }

// runAfterFetch invokes the registered post-fetch hooks, once each.
func (p *Plan) runAfterFetch() {
	for _, hook := range p.afterFetch {
		hook()
	}
}
