package planner

import (
	"github.com/MaxDude132/prefetcher/relpath"
	"github.com/MaxDude132/prefetcher/schema"
	"github.com/MaxDude132/prefetcher/shape"
	"github.com/MaxDude132/prefetcher/store"
)

// Planner computes fetch plans and applies them through a store
// adapter. A Planner is stateless between calls and safe for
// concurrent use; per-pass state lives on the walker.
type Planner struct {
	store    store.Store
	renderer Renderer
}

// New returns a Planner fetching through st and rendering through r.
// The renderer may be nil when only Plan and Apply are used.
func New(st store.Store, r Renderer) *Planner {
	return &Planner{store: st, renderer: r}
}

// Plan walks the shape tree rooted at node and returns its fetch plan.
func (p *Planner) Plan(node *shape.Node) (*Plan, error) {
	w := &walker{hookSeen: make(map[*shape.Node]struct{})}
	eager, batch, err := w.walk(node, relpath.Rel{}, false)
	if err != nil {
		return nil, err
	}
	// A path claimed by both lists is served by the batch fetch; the
	// eager join would be redundant work.
	eager = relpath.Subtract(eager, batch)
	return &Plan{Eager: eager, Batch: batch, root: node, afterFetch: w.hooks}, nil
}

// walker carries the per-pass accumulators of one Plan call.
type walker struct {
	hooks    []func()
	hookSeen map[*shape.Node]struct{}
	// stack holds the nodes of the current descent; a node already on
	// it is not descended into again, which bounds mutually recursive
	// shape trees.
	stack []*shape.Node
}

func (w *walker) onStack(node *shape.Node) bool {
	for _, n := range w.stack {
		if n == node {
			return true
		}
	}
	return false
}

// walk visits node reached via cur and returns the eager and batch
// paths its subtree contributes, already qualified and deduplicated.
// When forced is true the caller reached this subtree through a batch,
// and the eager list is folded into the batch list before returning:
// nothing below a batched relation can be joined eagerly.
func (w *walker) walk(node *shape.Node, cur relpath.Rel, forced bool) (eager, batch []relpath.Rel, err error) {
	if w.onStack(node) {
		return nil, nil, nil
	}
	w.stack = append(w.stack, node)
	defer func() { w.stack = w.stack[:len(w.stack)-1] }()

	force := node.ForceBatchNames()

	// Declared candidates: explicit batch declarations keep their
	// descriptors; eager candidates displaced by a batch or force
	// declaration join them as plain paths (deduplication keeps the
	// descriptor when both name the same relation).
	customEager, displaced := schema.SplitEager(node.EagerNames(), node.BatchRels(), force)
	eager = relpath.Merge(eager, relpath.Qualify(cur, relpath.Plains(customEager)))
	batch = relpath.Merge(batch, relpath.Qualify(cur, node.BatchRels()))
	batch = relpath.Merge(batch, relpath.Qualify(cur, relpath.Plains(displaced)))

	if eager, batch, err = w.walkSatellites(node, cur, eager, batch); err != nil {
		return nil, nil, err
	}
	if eager, batch, err = w.walkFields(node, cur, forced, force, eager, batch); err != nil {
		return nil, nil, err
	}

	if node.AfterFetch != nil {
		if _, seen := w.hookSeen[node]; !seen {
			w.hookSeen[node] = struct{}{}
			w.hooks = append(w.hooks, node.AfterFetch)
		}
	}

	if forced {
		folded := relpath.Merge(make([]relpath.Rel, 0, len(eager)+len(batch)), eager)
		return nil, relpath.Merge(folded, batch), nil
	}
	return eager, batch, nil
}

// walkSatellites plans the node's satellite links. A satellite is
// always planned as though its subtree were reached through a batch:
// there is no reliable way to know whether the caller intends a join or
// a batch for an auxiliary link, and a batch is always correct.
func (w *walker) walkSatellites(node *shape.Node, cur relpath.Rel, eager, batch []relpath.Rel) ([]relpath.Rel, []relpath.Rel, error) {
	for _, sat := range node.SatelliteLinks() {
		q := sat.Rel
		if !q.IsZero() {
			q = relpath.Join(cur, q)
			batch = relpath.Merge(batch, []relpath.Rel{q})
		}
		if sat.Shape == nil {
			return nil, nil, errSatelliteMissingShape(node, sat.Rel)
		}
		_, subBatch, err := w.walk(sat.Shape, q, true)
		if err != nil {
			return nil, nil, err
		}
		batch = relpath.Merge(batch, subBatch)
	}
	return eager, batch, nil
}

// walkFields plans the node's shape-valued fields.
func (w *walker) walkFields(node *shape.Node, cur relpath.Rel, forced bool, force []string, eager, batch []relpath.Rel) ([]relpath.Rel, []relpath.Rel, error) {
	aliased := node.AliasedFetches()

	for _, f := range node.Fields {
		if f.WriteOnly || f.Shape == nil {
			continue
		}

		childForced := forced || f.Many
		src := relpath.Plain(f.PlanSource())

		// A source satisfied by an aliased fetch declared at this node
		// cannot be joined: the join machinery knows nothing of the
		// alias or its filter.
		aliasHit := false
		for _, a := range aliased {
			if a.To == src.To {
				aliasHit = true
				childForced = true
				break
			}
		}

		if !aliasHit && node.Model != nil && !node.Model.Navigable(src) {
			if f.Source != "" {
				return nil, nil, errBadSource(node, f)
			}
			// A plain attribute, not a relation; nothing to plan.
			continue
		}

		toBatch := childForced || contains(force, src.To)
		qualified := relpath.Join(cur, src)

		subEager, subBatch, err := w.walk(f.Shape, qualified, childForced)
		if err != nil {
			return nil, nil, err
		}

		// A shape with no backing model contributes nothing, not even
		// its own path: there is no record type to plan against.
		if f.Shape.Model == nil {
			continue
		}
		if toBatch {
			batch = relpath.Merge(batch, []relpath.Rel{qualified})
		} else {
			eager = relpath.Merge(eager, []relpath.Rel{qualified})
		}
		eager = relpath.Merge(eager, subEager)
		batch = relpath.Merge(batch, subBatch)
	}
	return eager, batch, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
