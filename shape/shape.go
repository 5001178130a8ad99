// Package shape defines the serialization descriptor tree the planner
// walks: one Node per record type's declared output, with fields that
// may themselves be shape-valued, plus the relation hints and hooks a
// node may declare to steer fetch planning.
package shape

import (
	"github.com/MaxDude132/prefetcher/relpath"
	"github.com/MaxDude132/prefetcher/schema"
	"github.com/MaxDude132/prefetcher/store"
)

// Field is one declared output attribute of a Node.
type Field struct {
	// Name is the attribute name on the record and the output key.
	Name string

	// Source overrides the relation path used for planning. Required
	// when Name resolves through a derived attribute that is not
	// itself a relation. Empty means Name.
	Source string

	// WriteOnly fields are excluded from planning and rendering.
	WriteOnly bool

	// Shape is set when the field is shape-valued. For a to-many field
	// it is the element shape and Many is true.
	Shape *Node
	Many  bool
}

// PlanSource returns the relation name planning should use.
func (f Field) PlanSource() string {
	if f.Source != "" {
		return f.Source
	}
	return f.Name
}

// Satellite attaches an auxiliary shape subtree at a relation path that
// is not necessarily mirrored by an output field. It only drives fetch
// behavior; output keys still come from fields.
type Satellite struct {
	Rel   relpath.Rel
	Shape *Node
}

// Node is one level of the descriptor tree.
//
// Relation hints come in static and dynamic form; when the dynamic
// accessor func is set it is authoritative and the static declaration
// is ignored. The two tiers are consulted independently per hint kind.
type Node struct {
	// Name identifies the shape in diagnostics.
	Name string

	// Model is the backing record type. A nil model marks a
	// non-persisted shape: it contributes nothing relation-wise and
	// its candidates cannot be validated.
	Model *schema.Model

	Fields []Field

	// Eager lists relation names navigable as eager joins.
	Eager []string
	// Batch lists relations requiring a batched fetch; entries may be
	// fetch descriptors carrying an alias and filter.
	Batch []relpath.Rel
	// ForceBatch lists names that must batch even if otherwise
	// eager-eligible.
	ForceBatch []string
	Satellites []Satellite

	EagerFunc      func() []string
	BatchFunc      func() []relpath.Rel
	ForceBatchFunc func() []string
	SatellitesFunc func() []Satellite

	// AfterFetch runs once per planning pass after the node's
	// relations are satisfied.
	AfterFetch func()

	// AfterJoin runs on a lazy handle right after eager joins are
	// applied, before batched fetches. Only invoked for lazy handles.
	AfterJoin func(store.Query) store.Query

	// QueryHook transforms the handle after all fetch instructions are
	// applied, before materialization.
	QueryHook func(store.Query) store.Query

	// BeforeRender transforms the instance immediately before
	// rendering.
	BeforeRender func(any) any
}

// EagerNames resolves the effective eager-candidate declaration.
func (n *Node) EagerNames() []string {
	if n.EagerFunc != nil {
		return n.EagerFunc()
	}
	return n.Eager
}

// BatchRels resolves the effective batch-candidate declaration.
func (n *Node) BatchRels() []relpath.Rel {
	if n.BatchFunc != nil {
		return n.BatchFunc()
	}
	return n.Batch
}

// ForceBatchNames resolves the effective force-batch declaration.
func (n *Node) ForceBatchNames() []string {
	if n.ForceBatchFunc != nil {
		return n.ForceBatchFunc()
	}
	return n.ForceBatch
}

// SatelliteLinks resolves the effective satellite declaration.
func (n *Node) SatelliteLinks() []Satellite {
	if n.SatellitesFunc != nil {
		return n.SatellitesFunc()
	}
	return n.Satellites
}

// AliasedFetches yields every declared batch rel or satellite rel that
// stores under an alias differing from its traversal path. A field
// whose source is satisfied by one of these cannot be eager-joined.
func (n *Node) AliasedFetches() []relpath.Rel {
	var out []relpath.Rel
	for _, r := range n.BatchRels() {
		if r.To != r.Through {
			out = append(out, r)
		}
	}
	for _, s := range n.SatelliteLinks() {
		if s.Rel.To != s.Rel.Through {
			out = append(out, s.Rel)
		}
	}
	return out
}

// DisplayName returns the diagnostic name, falling back to the model
// name for anonymous shapes.
func (n *Node) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	if n.Model != nil {
		return n.Model.Name
	}
	return "(anonymous shape)"
}
