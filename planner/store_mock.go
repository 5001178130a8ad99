package planner

import (
	"context"
	"fmt"
	"sync"

	"github.com/MaxDude132/prefetcher/relpath"
	"github.com/MaxDude132/prefetcher/schema"
	"github.com/MaxDude132/prefetcher/store"
)

// MockResolver produces the related records for one relation hop.
// filter is the opaque restriction from a fetch descriptor, nil for
// plain paths; the mock applies it when it is a func(*store.Record) bool.
type MockResolver func(parent *store.Record, rel *schema.Relation, filter any) []*store.Record

// Call is one recorded store operation.
type Call struct {
	Op    string // "eager_join", "batched_fetch", "fetch_related", "materialize"
	Model string
	Path  string
}

// MockStore implements store.Store over in-memory fixtures. It records
// every operation and counts relation fetch round-trips: one per
// distinct path segment level actually fetched, with all eager joins of
// one materialization counting as a single round-trip (they share the
// base retrieval). The bare base retrieval itself is not counted.
type MockStore struct {
	mu      sync.Mutex
	resolve MockResolver
	roots   map[string][]*store.Record

	calls      []Call
	roundTrips int
}

// NewMockStore creates a MockStore serving roots (keyed by model name)
// and resolving relation hops through resolve.
func NewMockStore(roots map[string][]*store.Record, resolve MockResolver) *MockStore {
	return &MockStore{roots: roots, resolve: resolve}
}

// Calls returns the recorded operations.
func (m *MockStore) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// RoundTrips returns the number of relation fetch round-trips issued.
func (m *MockStore) RoundTrips() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roundTrips
}

func (m *MockStore) record(c Call) {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	m.mu.Unlock()
}

func (m *MockStore) addRoundTrips(n int) {
	m.mu.Lock()
	m.roundTrips += n
	m.mu.Unlock()
}

// Query implements store.Store.
func (m *MockStore) Query(model *schema.Model) store.Query {
	return &mockQuery{st: m, model: model}
}

// FetchRelated implements store.Store.
func (m *MockStore) FetchRelated(_ context.Context, records []*store.Record, rels ...relpath.Rel) error {
	if records == nil {
		return store.ErrNotBatchable
	}
	for _, r := range records {
		if r == nil {
			return store.ErrNotBatchable
		}
	}
	for _, rel := range rels {
		m.record(Call{Op: "fetch_related", Path: rel.To})
		if err := m.fetchChain(records, rel); err != nil {
			return err
		}
	}
	return nil
}

// fetchChain populates one relation path level by level, skipping
// levels every frontier record already carries.
func (m *MockStore) fetchChain(records []*store.Record, rel relpath.Rel) error {
	throughSegs := rel.Segments()
	toSegs := rel.ToSegments()
	if len(toSegs) != len(throughSegs) {
		return fmt.Errorf("path %q and storage path %q have different segment counts", rel.Through, rel.To)
	}

	frontier := records
	for i, seg := range throughSegs {
		storeAs := toSegs[i]
		var filter any
		if i == len(throughSegs)-1 {
			filter = rel.Filter
		}

		fetched := false
		next := make([]*store.Record, 0, len(frontier))
		for _, r := range frontier {
			recs, ok := r.Related(storeAs)
			if !ok {
				if r.Model != nil {
					if relMeta := r.Model.Relation(seg); relMeta != nil {
						recs = m.resolve(r, relMeta, filter)
						fetched = true
					}
				}
				r.SetRelated(storeAs, recs)
			}
			next = append(next, recs...)
		}
		if fetched {
			m.addRoundTrips(1)
		}
		frontier = next
	}
	return nil
}

// mockQuery is a lazy handle accumulating fetch instructions.
type mockQuery struct {
	st      *MockStore
	model   *schema.Model
	joins   []string
	batches []relpath.Rel
}

func (q *mockQuery) Model() *schema.Model { return q.model }

func (q *mockQuery) clone() *mockQuery {
	return &mockQuery{
		st:      q.st,
		model:   q.model,
		joins:   append([]string(nil), q.joins...),
		batches: append([]relpath.Rel(nil), q.batches...),
	}
}

func (q *mockQuery) EagerJoin(paths ...string) store.Query {
	next := q.clone()
	next.joins = append(next.joins, paths...)
	for _, p := range paths {
		q.st.record(Call{Op: "eager_join", Model: q.model.Name, Path: p})
	}
	return next
}

func (q *mockQuery) BatchedFetch(rels ...relpath.Rel) store.Query {
	next := q.clone()
	next.batches = append(next.batches, rels...)
	for _, r := range rels {
		q.st.record(Call{Op: "batched_fetch", Model: q.model.Name, Path: r.To})
	}
	return next
}

func (q *mockQuery) Materialize(_ context.Context) (*store.Collection, error) {
	q.st.record(Call{Op: "materialize", Model: q.model.Name})
	records := append([]*store.Record(nil), q.st.roots[q.model.Name]...)

	// Joined relations ride along with the base retrieval: one
	// round-trip no matter how many join paths.
	if len(q.joins) > 0 {
		q.st.addRoundTrips(1)
		for _, p := range q.joins {
			q.joinChain(records, relpath.Plain(p))
		}
	}
	for _, rel := range q.batches {
		if err := q.st.fetchChain(records, rel); err != nil {
			return nil, err
		}
	}
	return store.NewCollection(records), nil
}

// joinChain resolves a chain of to-one relations without counting
// round-trips; the join shares the base retrieval.
func (q *mockQuery) joinChain(records []*store.Record, rel relpath.Rel) {
	frontier := records
	for _, seg := range rel.Segments() {
		next := make([]*store.Record, 0, len(frontier))
		for _, r := range frontier {
			recs, ok := r.Related(seg)
			if !ok {
				if r.Model != nil {
					if relMeta := r.Model.Relation(seg); relMeta != nil {
						recs = q.st.resolve(r, relMeta, nil)
					}
				}
				r.SetRelated(seg, recs)
			}
			next = append(next, recs...)
		}
		frontier = next
	}
}
