package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaxDude132/prefetcher/relpath"
	"github.com/MaxDude132/prefetcher/schema"
	"github.com/MaxDude132/prefetcher/store"
)

func testModels() map[string]*schema.Model {
	continent := &schema.Model{Name: "continent", Table: "continents", PK: "id", Attrs: []string{"id", "label"}}
	country := &schema.Model{Name: "country", Table: "countries", PK: "id", Attrs: []string{"id", "label", "continent_id"}}
	pizza := &schema.Model{Name: "pizza", Table: "pizzas", PK: "id", Attrs: []string{"id", "label", "provenance_id"}}
	topping := &schema.Model{Name: "topping", Table: "toppings", PK: "id", Attrs: []string{"id", "label", "pizza_id", "origin_id"}}

	continent.Relations = map[string]*schema.Relation{
		"countries": {Name: "countries", Target: country, Plural: true, RemoteColumn: "continent_id"},
	}
	country.Relations = map[string]*schema.Relation{
		"continent": {Name: "continent", Target: continent, LocalColumn: "continent_id"},
	}
	pizza.Relations = map[string]*schema.Relation{
		"provenance": {Name: "provenance", Target: country, LocalColumn: "provenance_id"},
		"toppings":   {Name: "toppings", Target: topping, Plural: true, RemoteColumn: "pizza_id"},
	}
	topping.Relations = map[string]*schema.Relation{
		"origin": {Name: "origin", Target: country, LocalColumn: "origin_id"},
	}
	return map[string]*schema.Model{
		"continent": continent, "country": country, "pizza": pizza, "topping": topping,
	}
}

func openSeeded(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	stmts := []string{
		"CREATE TABLE continents (id INTEGER PRIMARY KEY, label TEXT)",
		"CREATE TABLE countries (id INTEGER PRIMARY KEY, label TEXT, continent_id INTEGER)",
		"CREATE TABLE pizzas (id INTEGER PRIMARY KEY, label TEXT, provenance_id INTEGER)",
		"CREATE TABLE toppings (id INTEGER PRIMARY KEY, label TEXT, pizza_id INTEGER, origin_id INTEGER)",
		"INSERT INTO continents VALUES (1, 'Europe'), (2, 'North America')",
		"INSERT INTO countries VALUES (1, 'Italy', 1), (2, 'Canada', 2)",
		"INSERT INTO pizzas VALUES (1, 'Margherita', 1), (2, 'Pepperoni', 2)",
		"INSERT INTO toppings VALUES (1, 'Basil', 1, 1), (2, 'Mozzarella', 1, 1), (3, 'Pepperoni', 2, 2)",
	}
	for _, s := range stmts {
		_, err := st.DB().Exec(s)
		require.NoError(t, err)
	}
	return st
}

func TestMaterializeBase(t *testing.T) {
	st := openSeeded(t)
	models := testModels()

	coll, err := st.Query(models["pizza"]).Materialize(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, coll.Len())

	first := coll.At(0)
	label, _ := first.Get("label")
	assert.Equal(t, "Margherita", label)
	assert.Equal(t, int64(1), first.PK())
	assert.False(t, first.HasFetchedRelations())
}

func TestMaterializeEagerJoinChain(t *testing.T) {
	st := openSeeded(t)
	models := testModels()

	coll, err := st.Query(models["pizza"]).
		EagerJoin("provenance__continent").
		Materialize(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, coll.Len())

	prov := coll.At(0).RelatedOne("provenance")
	require.NotNil(t, prov)
	label, _ := prov.Get("label")
	assert.Equal(t, "Italy", label)

	cont := prov.RelatedOne("continent")
	require.NotNil(t, cont)
	label, _ = cont.Get("label")
	assert.Equal(t, "Europe", label)
}

func TestMaterializeEagerJoinNullForeignKey(t *testing.T) {
	st := openSeeded(t)
	models := testModels()
	_, err := st.DB().Exec("INSERT INTO pizzas VALUES (3, 'Plain', NULL)")
	require.NoError(t, err)

	coll, err := st.Query(models["pizza"]).
		EagerJoin("provenance").
		Materialize(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, coll.Len())

	plain := coll.At(2)
	assert.Nil(t, plain.RelatedOne("provenance"))
	// The relation is recorded as fetched-and-empty, not missing.
	_, ok := plain.Related("provenance")
	assert.True(t, ok)
}

func TestMaterializeBatchedFetch(t *testing.T) {
	st := openSeeded(t)
	models := testModels()

	coll, err := st.Query(models["pizza"]).
		BatchedFetch(relpath.Plain("toppings")).
		Materialize(context.Background())
	require.NoError(t, err)

	margherita, _ := coll.At(0).Related("toppings")
	require.Len(t, margherita, 2)
	label, _ := margherita[0].Get("label")
	assert.Equal(t, "Basil", label)

	pepperoni, _ := coll.At(1).Related("toppings")
	require.Len(t, pepperoni, 1)
}

func TestFetchRelatedMultiLevel(t *testing.T) {
	st := openSeeded(t)
	models := testModels()
	ctx := context.Background()

	coll, err := st.Query(models["pizza"]).Materialize(ctx)
	require.NoError(t, err)

	err = st.FetchRelated(ctx, coll.Records, relpath.Plain("toppings__origin"))
	require.NoError(t, err)

	toppings, _ := coll.At(0).Related("toppings")
	require.Len(t, toppings, 2)
	origin := toppings[0].RelatedOne("origin")
	require.NotNil(t, origin)
	label, _ := origin.Get("label")
	assert.Equal(t, "Italy", label)

	// Children with the same key share one record instance.
	assert.Same(t, origin, toppings[1].RelatedOne("origin"))
}

func TestFetchRelatedAliasAndFilter(t *testing.T) {
	st := openSeeded(t)
	models := testModels()
	ctx := context.Background()

	coll, err := st.Query(models["pizza"]).Materialize(ctx)
	require.NoError(t, err)

	rel := relpath.Fetch("toppings", "eu_toppings", &Cond{Expr: "origin_id = ?", Args: []any{1}})
	require.NoError(t, st.FetchRelated(ctx, coll.Records, rel))

	eu, ok := coll.At(0).Related("eu_toppings")
	require.True(t, ok)
	assert.Len(t, eu, 2)
	// Pepperoni's only topping originates outside Europe.
	eu, _ = coll.At(1).Related("eu_toppings")
	assert.Empty(t, eu)

	// The natural name stays unfetched.
	_, ok = coll.At(0).Related("toppings")
	assert.False(t, ok)
}

func TestFetchRelatedAliasOnMultiSegmentPath(t *testing.T) {
	st := openSeeded(t)
	models := testModels()
	ctx := context.Background()

	coll, err := st.Query(models["pizza"]).Materialize(ctx)
	require.NoError(t, err)

	rel := relpath.Fetch("toppings__origin", "eu", &Cond{Expr: "continent_id = ?", Args: []any{1}})
	require.NoError(t, st.FetchRelated(ctx, coll.Records, rel))

	// Intermediate hops keep their natural names; only the final hop
	// stores under the alias.
	toppings, ok := coll.At(0).Related("toppings")
	require.True(t, ok)
	require.Len(t, toppings, 2)

	eu := toppings[0].RelatedOne("eu")
	require.NotNil(t, eu)
	label, _ := eu.Get("label")
	assert.Equal(t, "Italy", label)
	assert.Nil(t, toppings[0].RelatedOne("origin"))

	// Pepperoni's topping comes from Canada, outside the filter.
	toppings, _ = coll.At(1).Related("toppings")
	require.Len(t, toppings, 1)
	assert.Nil(t, toppings[0].RelatedOne("eu"))
}

func TestFetchRelatedRejectsMisalignedStoragePath(t *testing.T) {
	st := openSeeded(t)
	models := testModels()

	coll, err := st.Query(models["pizza"]).Materialize(context.Background())
	require.NoError(t, err)

	rel := relpath.Rel{Through: "toppings__origin", To: "eu"}
	err = st.FetchRelated(context.Background(), coll.Records, rel)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "segment counts")
}

func TestFetchRelatedSkipsPopulated(t *testing.T) {
	st := openSeeded(t)
	models := testModels()
	ctx := context.Background()

	coll, err := st.Query(models["pizza"]).Materialize(ctx)
	require.NoError(t, err)

	require.NoError(t, st.FetchRelated(ctx, coll.Records, relpath.Plain("provenance")))
	first := coll.At(0).RelatedOne("provenance")

	require.NoError(t, st.FetchRelated(ctx, coll.Records, relpath.Plain("provenance")))
	assert.Same(t, first, coll.At(0).RelatedOne("provenance"))
}

func TestFetchRelatedNilRecords(t *testing.T) {
	st := openSeeded(t)
	err := st.FetchRelated(context.Background(), nil, relpath.Plain("toppings"))
	assert.ErrorIs(t, err, store.ErrNotBatchable)

	err = st.FetchRelated(context.Background(), []*store.Record{nil}, relpath.Plain("toppings"))
	assert.ErrorIs(t, err, store.ErrNotBatchable)
}

func TestFetchRelatedRejectsUnknownFilter(t *testing.T) {
	st := openSeeded(t)
	models := testModels()

	coll, err := st.Query(models["pizza"]).Materialize(context.Background())
	require.NoError(t, err)

	rel := relpath.Fetch("toppings", "", func() {})
	err = st.FetchRelated(context.Background(), coll.Records, rel)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported filter type")
}

func TestMaterializeRejectsPluralJoin(t *testing.T) {
	st := openSeeded(t)
	models := testModels()

	_, err := st.Query(models["pizza"]).
		EagerJoin("toppings").
		Materialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plural")
}

func TestQueryHandleIsImmutable(t *testing.T) {
	st := openSeeded(t)
	models := testModels()

	base := st.Query(models["pizza"])
	joined := base.EagerJoin("provenance")
	require.NotSame(t, base, joined)

	coll, err := base.Materialize(context.Background())
	require.NoError(t, err)
	assert.False(t, coll.At(0).HasFetchedRelations())
}
