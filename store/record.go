package store

import "github.com/MaxDude132/prefetcher/schema"

// Record is one materialized row of a model, carrying scalar attributes
// and a cache of fetched relations. The relation cache is keyed by
// storage path segment: a relation fetched under an alias is cached
// under the alias, not its natural name.
type Record struct {
	Model *schema.Model
	Attrs map[string]any

	related map[string][]*Record
	planned bool
}

// NewRecord returns a record of model with the given attributes.
func NewRecord(model *schema.Model, attrs map[string]any) *Record {
	if attrs == nil {
		attrs = make(map[string]any)
	}
	return &Record{Model: model, Attrs: attrs}
}

// Get returns the named scalar attribute.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.Attrs[name]
	return v, ok
}

// PK returns the record's primary key value.
func (r *Record) PK() any {
	if r.Model == nil {
		return nil
	}
	return r.Attrs[r.Model.PK]
}

// Related returns the cached rows for one relation segment.
func (r *Record) Related(name string) ([]*Record, bool) {
	recs, ok := r.related[name]
	return recs, ok
}

// RelatedOne returns the single cached row for a to-one relation
// segment, or nil when absent or empty.
func (r *Record) RelatedOne(name string) *Record {
	recs, ok := r.related[name]
	if !ok || len(recs) == 0 {
		return nil
	}
	return recs[0]
}

// SetRelated stores fetched rows under one relation segment.
func (r *Record) SetRelated(name string, recs []*Record) {
	if r.related == nil {
		r.related = make(map[string][]*Record)
	}
	r.related[name] = recs
}

// HasFetchedRelations reports whether any relation has been populated
// on this record, by the planner or by an unrelated mechanism.
func (r *Record) HasFetchedRelations() bool { return len(r.related) > 0 }

// Collection is a materialized set of records. It exists mainly so a
// bare record slice has somewhere to carry the advisory planned flag;
// it behaves like the slice for iteration and indexing.
type Collection struct {
	Records []*Record

	planned bool
}

// NewCollection wraps records in a Collection.
func NewCollection(records []*Record) *Collection {
	return &Collection{Records: records}
}

// Len returns the number of records.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Records)
}

// At returns the i-th record.
func (c *Collection) At(i int) *Record { return c.Records[i] }

// Planned reports whether prefetch planning has already been applied.
func (c *Collection) Planned() bool { return c != nil && c.planned }

// MarkPlanned sets the advisory planning flag.
func (c *Collection) MarkPlanned() { c.planned = true }

// Planned reports whether prefetch planning has already been applied
// to this record.
func (r *Record) Planned() bool { return r != nil && r.planned }

// MarkPlanned sets the advisory planning flag.
func (r *Record) MarkPlanned() { r.planned = true }
