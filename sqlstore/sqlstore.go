// Package sqlstore implements the planner's store interface over a
// SQLite database. Eager joins become LEFT JOINs sharing the base
// SELECT; batched fetches become one grouped IN (...) query per
// relation hop.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/MaxDude132/prefetcher/relpath"
	"github.com/MaxDude132/prefetcher/schema"
	"github.com/MaxDude132/prefetcher/store"
)

// Cond restricts the final hop of a batched fetch with a raw SQL
// predicate evaluated against the target table. It is carried as the
// opaque filter of a fetch descriptor; only this adapter interprets it.
type Cond struct {
	Expr string
	Args []any
}

// Store implements store.Store over a *sql.DB.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing database handle. The caller keeps ownership;
// Close is a no-op for stores built this way.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle, e.g. for seeding fixtures.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Query implements store.Store.
func (s *Store) Query(model *schema.Model) store.Query {
	return &sqlQuery{st: s, model: model}
}

// FetchRelated implements store.Store. Each rel is resolved hop by
// hop: every hop issues at most one grouped query covering all parent
// records that do not already carry the relation.
func (s *Store) FetchRelated(ctx context.Context, records []*store.Record, rels ...relpath.Rel) error {
	if records == nil {
		return store.ErrNotBatchable
	}
	for _, r := range records {
		if r == nil {
			return store.ErrNotBatchable
		}
	}
	if len(records) == 0 {
		return nil
	}
	for _, rel := range rels {
		if err := s.fetchChain(ctx, records, rel); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) fetchChain(ctx context.Context, records []*store.Record, rel relpath.Rel) error {
	throughSegs := rel.Segments()
	toSegs := rel.ToSegments()
	if len(toSegs) != len(throughSegs) {
		return fmt.Errorf("sqlstore: path %q and storage path %q have different segment counts", rel.Through, rel.To)
	}

	frontier := records
	for i, seg := range throughSegs {
		storeAs := toSegs[i]
		var filter any
		if i == len(throughSegs)-1 {
			filter = rel.Filter
		}

		// Parents that still need this hop fetched.
		var pending []*store.Record
		next := make([]*store.Record, 0, len(frontier))
		for _, r := range frontier {
			if recs, ok := r.Related(storeAs); ok {
				next = append(next, recs...)
				continue
			}
			pending = append(pending, r)
		}
		if len(pending) > 0 {
			relMeta := pending[0].Model.Relation(seg)
			if relMeta == nil {
				return fmt.Errorf("sqlstore: model %s has no relation %q (path %q)",
					pending[0].Model.Name, seg, rel.Through)
			}
			fetched, err := s.fetchHop(ctx, pending, relMeta, storeAs, filter)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", rel.Through, err)
			}
			next = append(next, fetched...)
		}
		frontier = next
	}
	return nil
}

// fetchHop issues one grouped query for a single relation hop and
// attaches the results under storeAs on every parent.
func (s *Store) fetchHop(ctx context.Context, parents []*store.Record, rel *schema.Relation, storeAs string, filter any) ([]*store.Record, error) {
	switch {
	case rel.RemoteColumn != "":
		return s.fetchToMany(ctx, parents, rel, storeAs, filter)
	case rel.LocalColumn != "":
		return s.fetchToOne(ctx, parents, rel, storeAs, filter)
	default:
		return nil, fmt.Errorf("relation %q declares neither a local nor a remote column", rel.Name)
	}
}

func (s *Store) fetchToOne(ctx context.Context, parents []*store.Record, rel *schema.Relation, storeAs string, filter any) ([]*store.Record, error) {
	keys, byKey := collectKeys(parents, func(r *store.Record) any {
		v, _ := r.Get(rel.LocalColumn)
		return v
	})
	if len(keys) == 0 {
		for _, p := range parents {
			p.SetRelated(storeAs, nil)
		}
		return nil, nil
	}

	target := rel.Target
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s)",
		strings.Join(target.Attrs, ", "), tableName(target), target.PK, placeholders(len(keys)))
	query, keys2, err := applyCond(query, keys, filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, keys2...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	byPK := make(map[any]*store.Record)
	var fetched []*store.Record
	for rows.Next() {
		rec, err := scanRecord(rows, target, target.Attrs)
		if err != nil {
			return nil, err
		}
		byPK[rec.PK()] = rec
		fetched = append(fetched, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for key, group := range byKey {
		var recs []*store.Record
		if child, ok := byPK[key]; ok {
			recs = []*store.Record{child}
		}
		for _, p := range group {
			p.SetRelated(storeAs, recs)
		}
	}
	return fetched, nil
}

func (s *Store) fetchToMany(ctx context.Context, parents []*store.Record, rel *schema.Relation, storeAs string, filter any) ([]*store.Record, error) {
	keys, byKey := collectKeys(parents, func(r *store.Record) any { return r.PK() })
	if len(keys) == 0 {
		return nil, nil
	}

	target := rel.Target
	cols := append([]string(nil), target.Attrs...)
	if !target.HasAttr(rel.RemoteColumn) {
		cols = append(cols, rel.RemoteColumn)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s)",
		strings.Join(cols, ", "), tableName(target), rel.RemoteColumn, placeholders(len(keys)))
	query, keys2, err := applyCond(query, keys, filter)
	if err != nil {
		return nil, err
	}
	query += " ORDER BY " + target.PK

	rows, err := s.db.QueryContext(ctx, query, keys2...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	groups := make(map[any][]*store.Record)
	var fetched []*store.Record
	for rows.Next() {
		rec, err := scanRecord(rows, target, cols)
		if err != nil {
			return nil, err
		}
		fk, _ := rec.Get(rel.RemoteColumn)
		groups[fk] = append(groups[fk], rec)
		fetched = append(fetched, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for key, group := range byKey {
		recs := groups[key]
		for _, p := range group {
			p.SetRelated(storeAs, recs)
		}
	}
	return fetched, nil
}

// collectKeys extracts the grouping key of each parent, returning the
// distinct non-NULL keys in first-seen order plus key → parents.
func collectKeys(parents []*store.Record, key func(*store.Record) any) ([]any, map[any][]*store.Record) {
	var keys []any
	byKey := make(map[any][]*store.Record)
	for _, p := range parents {
		k := normalize(key(p))
		if k == nil {
			continue
		}
		if _, seen := byKey[k]; !seen {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], p)
	}
	return keys, byKey
}

// applyCond appends a Cond filter to a WHERE ... IN query. A non-nil
// filter of any other type is rejected.
func applyCond(query string, args []any, filter any) (string, []any, error) {
	if filter == nil {
		return query, args, nil
	}
	cond, ok := filter.(*Cond)
	if !ok {
		return "", nil, fmt.Errorf("unsupported filter type %T (want *sqlstore.Cond)", filter)
	}
	return query + " AND (" + cond.Expr + ")", append(args, cond.Args...), nil
}

// sqlQuery is a lazy handle accumulating fetch instructions against one
// model's table. It is immutable: EagerJoin and BatchedFetch clone.
type sqlQuery struct {
	st      *Store
	model   *schema.Model
	joins   []string
	batches []relpath.Rel
}

func (q *sqlQuery) Model() *schema.Model { return q.model }

func (q *sqlQuery) clone() *sqlQuery {
	return &sqlQuery{
		st:      q.st,
		model:   q.model,
		joins:   append([]string(nil), q.joins...),
		batches: append([]relpath.Rel(nil), q.batches...),
	}
}

func (q *sqlQuery) EagerJoin(paths ...string) store.Query {
	next := q.clone()
	next.joins = append(next.joins, paths...)
	return next
}

func (q *sqlQuery) BatchedFetch(rels ...relpath.Rel) store.Query {
	next := q.clone()
	next.batches = append(next.batches, rels...)
	return next
}

// joinEdge is one compiled LEFT JOIN hop of an eager join path.
type joinEdge struct {
	prefix       string // full path up to and including seg
	parentPrefix string
	seg          string
	parentAlias  string
	alias        string
	rel          *schema.Relation
}

// compileJoins flattens the eager join paths into LEFT JOIN edges,
// sharing one edge per distinct path prefix. Only to-one relations
// with a local foreign key column can be joined.
func compileJoins(model *schema.Model, paths []string) ([]joinEdge, error) {
	var edges []joinEdge
	aliasByPrefix := map[string]string{"": "t0"}
	modelByPrefix := map[string]*schema.Model{"": model}

	n := 0
	for _, p := range paths {
		prefix := ""
		for _, seg := range strings.Split(p, relpath.Separator) {
			parent := prefix
			if prefix == "" {
				prefix = seg
			} else {
				prefix += relpath.Separator + seg
			}
			if _, ok := aliasByPrefix[prefix]; ok {
				continue
			}
			cur := modelByPrefix[parent]
			rel := cur.Relation(seg)
			if rel == nil {
				return nil, fmt.Errorf("model %s has no relation %q (path %q)", cur.Name, seg, p)
			}
			if rel.Plural {
				return nil, fmt.Errorf("cannot join plural relation %q (path %q)", seg, p)
			}
			if rel.LocalColumn == "" {
				return nil, fmt.Errorf("relation %q has no local column to join on (path %q)", seg, p)
			}
			n++
			alias := fmt.Sprintf("t%d", n)
			edges = append(edges, joinEdge{
				prefix:       prefix,
				parentPrefix: parent,
				seg:          seg,
				parentAlias:  aliasByPrefix[parent],
				alias:        alias,
				rel:          rel,
			})
			aliasByPrefix[prefix] = alias
			modelByPrefix[prefix] = rel.Target
		}
	}
	return edges, nil
}

// Materialize executes the accumulated plan: one SELECT with LEFT
// JOINs covering the base records and every eager path, then one
// batched fetch pass for the batch rels.
func (q *sqlQuery) Materialize(ctx context.Context) (*store.Collection, error) {
	edges, err := compileJoins(q.model, q.joins)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: %w", err)
	}

	cols := aliasColumns("t0", q.model.Attrs)
	for _, e := range edges {
		cols = append(cols, aliasColumns(e.alias, e.rel.Target.Attrs)...)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s AS t0", strings.Join(cols, ", "), tableName(q.model))
	for _, e := range edges {
		fmt.Fprintf(&b, " LEFT JOIN %s AS %s ON %s.%s = %s.%s",
			tableName(e.rel.Target), e.alias,
			e.alias, e.rel.Target.PK,
			e.parentAlias, e.rel.LocalColumn)
	}
	fmt.Fprintf(&b, " ORDER BY t0.%s", q.model.PK)

	rows, err := q.st.db.QueryContext(ctx, b.String())
	if err != nil {
		return nil, fmt.Errorf("sqlstore: materialize %s: %w", q.model.Name, err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	var records []*store.Record
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqlstore: scan %s: %w", q.model.Name, err)
		}

		off := 0
		root := recordAt(q.model, vals, off)
		off += len(q.model.Attrs)
		records = append(records, root)

		// Edges are emitted parent-before-child, so the parent record
		// of every edge is already built when the edge is processed.
		byPrefix := map[string]*store.Record{"": root}
		for _, e := range edges {
			parent := byPrefix[e.parentPrefix]
			child := recordAt(e.rel.Target, vals, off)
			off += len(e.rel.Target.Attrs)
			if parent == nil {
				continue
			}
			if _, ok := child.Get(e.rel.Target.PK); !ok {
				parent.SetRelated(e.seg, nil)
				continue
			}
			parent.SetRelated(e.seg, []*store.Record{child})
			byPrefix[e.prefix] = child
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: materialize %s: %w", q.model.Name, err)
	}

	if err := q.st.FetchRelated(ctx, records, q.batches...); err != nil {
		return nil, err
	}
	return store.NewCollection(records), nil
}

// recordAt builds a record from a scanned row slice starting at off.
// NULL columns are omitted so an all-NULL joined row reads as absent.
func recordAt(model *schema.Model, vals []any, off int) *store.Record {
	attrs := make(map[string]any, len(model.Attrs))
	for i, name := range model.Attrs {
		if v := normalize(vals[off+i]); v != nil {
			attrs[name] = v
		}
	}
	return store.NewRecord(model, attrs)
}

// scanRecord reads one row into a record, mapping selected columns to
// attributes by name. cols may carry columns the model does not
// declare, e.g. a reverse foreign key pulled in for grouping.
func scanRecord(rows *sql.Rows, model *schema.Model, cols []string) (*store.Record, error) {
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	attrs := make(map[string]any, len(cols))
	for i, name := range cols {
		if v := normalize(vals[i]); v != nil {
			attrs[name] = v
		}
	}
	return store.NewRecord(model, attrs), nil
}

func tableName(m *schema.Model) string {
	if m.Table != "" {
		return m.Table
	}
	return m.Name
}

func aliasColumns(alias string, attrs []string) []string {
	out := make([]string, len(attrs))
	for i, a := range attrs {
		out[i] = alias + "." + a
	}
	return out
}

func placeholders(n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = "?"
	}
	return strings.Join(out, ",")
}

// normalize maps driver byte slices to strings so scanned values are
// comparable and usable as map keys.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// Verify interface compliance at compile time.
var _ store.Store = (*Store)(nil)
var _ store.Query = (*sqlQuery)(nil)
