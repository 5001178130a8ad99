// Package schema describes the record types the planner plans against:
// which attributes a record carries, which relations are navigable from
// it, and whether a relation is singular or plural. The store adapter
// additionally reads the column mapping to build its queries.
package schema

import (
	"fmt"

	"github.com/MaxDude132/prefetcher/relpath"
)

// Relation is one navigable edge from a model to another.
type Relation struct {
	Name   string
	Target *Model
	// Plural marks a to-many relation; plural relations are never
	// eligible for eager joining.
	Plural bool

	// LocalColumn holds the foreign key column on the owning table for
	// a to-one relation. RemoteColumn holds the foreign key column on
	// the target table for a reverse (to-many) relation. The planner
	// ignores both; the SQL store adapter requires exactly one.
	LocalColumn  string
	RemoteColumn string
}

// Model is the schema metadata for one record type.
type Model struct {
	Name      string
	Table     string
	PK        string
	Attrs     []string
	Relations map[string]*Relation
}

// Relation returns the named relation, or nil.
func (m *Model) Relation(name string) *Relation {
	if m == nil {
		return nil
	}
	return m.Relations[name]
}

// HasAttr reports whether name is a declared scalar attribute.
func (m *Model) HasAttr(name string) bool {
	if m == nil {
		return false
	}
	for _, a := range m.Attrs {
		if a == name {
			return true
		}
	}
	return false
}

// Navigable reports whether rel's traversal path resolves through
// relations starting at m. A nil model validates nothing and reports
// every path navigable: without schema metadata the planner must
// assume the caller is right and let the store surface any error.
func (m *Model) Navigable(rel relpath.Rel) bool {
	if m == nil {
		return true
	}
	cur := m
	for _, seg := range rel.Segments() {
		if cur == nil {
			// An untyped edge mid-path: nothing left to validate.
			return true
		}
		r := cur.Relation(seg)
		if r == nil {
			return false
		}
		cur = r.Target
	}
	return true
}

// Resolve walks rel's traversal path and returns the final relation.
func (m *Model) Resolve(rel relpath.Rel) (*Relation, error) {
	cur := m
	var last *Relation
	for _, seg := range rel.Segments() {
		if cur == nil {
			return nil, fmt.Errorf("schema: cannot resolve %q past an untyped relation", rel.Through)
		}
		r := cur.Relation(seg)
		if r == nil {
			return nil, fmt.Errorf("schema: model %s has no relation %q (path %q)", cur.Name, seg, rel.Through)
		}
		last = r
		cur = r.Target
	}
	if last == nil {
		return nil, fmt.Errorf("schema: empty relation path")
	}
	return last, nil
}

// SplitEager partitions declared relation names into eager and batch
// buckets. Every eager candidate already named by the declared batch
// rels moves to batch (an explicit batch declaration beats an explicit
// eager one), and every candidate named by force moves to batch
// regardless of its original bucket. Relative declaration order is
// preserved within each bucket.
func SplitEager(eager []string, batch []relpath.Rel, force []string) (toEager []string, toBatch []string) {
	batched := make(map[string]struct{}, len(batch))
	for _, b := range batch {
		batched[b.To] = struct{}{}
	}
	forced := make(map[string]struct{}, len(force))
	for _, f := range force {
		forced[f] = struct{}{}
	}
	for _, name := range eager {
		if _, ok := forced[name]; ok {
			toBatch = append(toBatch, name)
			continue
		}
		if _, ok := batched[name]; ok {
			toBatch = append(toBatch, name)
			continue
		}
		toEager = append(toEager, name)
	}
	return toEager, toBatch
}
