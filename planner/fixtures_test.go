package planner

import (
	"github.com/MaxDude132/prefetcher/schema"
	"github.com/MaxDude132/prefetcher/shape"
	"github.com/MaxDude132/prefetcher/store"
)

// The pizza menu fixtures mirrored across the module's tests:
// Pizza -> provenance Country -> continent Continent, and
// Pizza -> toppings []Topping -> origin Country.

func pizzaModels() (continent, country, pizza, topping *schema.Model) {
	continent = &schema.Model{
		Name:  "continent",
		Table: "continent",
		PK:    "id",
		Attrs: []string{"id", "label"},
	}
	country = &schema.Model{
		Name:  "country",
		Table: "country",
		PK:    "id",
		Attrs: []string{"id", "label"},
	}
	pizza = &schema.Model{
		Name:  "pizza",
		Table: "pizza",
		PK:    "id",
		Attrs: []string{"id", "label"},
	}
	topping = &schema.Model{
		Name:  "topping",
		Table: "topping",
		PK:    "id",
		Attrs: []string{"id", "label"},
	}
	country.Relations = map[string]*schema.Relation{
		"continent": {Name: "continent", Target: continent, LocalColumn: "continent_id"},
	}
	pizza.Relations = map[string]*schema.Relation{
		"provenance": {Name: "provenance", Target: country, LocalColumn: "provenance_id"},
		"toppings":   {Name: "toppings", Target: topping, Plural: true, RemoteColumn: "pizza_id"},
	}
	topping.Relations = map[string]*schema.Relation{
		"pizza":  {Name: "pizza", Target: pizza, LocalColumn: "pizza_id"},
		"origin": {Name: "origin", Target: country, LocalColumn: "origin_id"},
	}
	return continent, country, pizza, topping
}

type fixtures struct {
	continent, country, pizza, topping *schema.Model

	records map[string][]*store.Record
}

func newFixtures() *fixtures {
	continent, country, pizza, topping := pizzaModels()
	f := &fixtures{
		continent: continent, country: country, pizza: pizza, topping: topping,
		records: map[string][]*store.Record{},
	}
	add := func(m *schema.Model, attrs map[string]any) *store.Record {
		r := store.NewRecord(m, attrs)
		f.records[m.Name] = append(f.records[m.Name], r)
		return r
	}
	add(continent, map[string]any{"id": 1, "label": "Europe"})
	add(continent, map[string]any{"id": 2, "label": "America"})
	add(country, map[string]any{"id": 1, "label": "Italy", "continent_id": 1})
	add(country, map[string]any{"id": 2, "label": "Canada", "continent_id": 2})
	add(pizza, map[string]any{"id": 1, "label": "Margherita", "provenance_id": 1})
	add(pizza, map[string]any{"id": 2, "label": "Pepperoni", "provenance_id": 2})
	add(topping, map[string]any{"id": 1, "label": "Basil", "pizza_id": 1, "origin_id": 1})
	add(topping, map[string]any{"id": 2, "label": "Mozzarella", "pizza_id": 1, "origin_id": 1})
	add(topping, map[string]any{"id": 3, "label": "Pepperoni", "pizza_id": 2, "origin_id": 2})
	return f
}

// resolve implements MockResolver over the fixture records using the
// schema's column mapping.
func (f *fixtures) resolve(parent *store.Record, rel *schema.Relation, filter any) []*store.Record {
	var out []*store.Record
	targets := f.records[rel.Target.Name]
	if rel.Plural {
		for _, t := range targets {
			if t.Attrs[rel.RemoteColumn] == parent.PK() {
				out = append(out, t)
			}
		}
	} else {
		fk := parent.Attrs[rel.LocalColumn]
		for _, t := range targets {
			if t.PK() == fk {
				out = append(out, t)
				break
			}
		}
	}
	if pred, ok := filter.(func(*store.Record) bool); ok {
		kept := out[:0:0]
		for _, r := range out {
			if pred(r) {
				kept = append(kept, r)
			}
		}
		out = kept
	}
	return out
}

func (f *fixtures) mockStore() *MockStore {
	return NewMockStore(f.records, f.resolve)
}

func (f *fixtures) pizzaRecords() []*store.Record { return f.records["pizza"] }

// Shapes matching the fixture models, one field per scalar label plus
// the nested relations.

func (f *fixtures) toppingShape() *shape.Node {
	return &shape.Node{Name: "ToppingShape", Model: f.topping, Fields: []shape.Field{{Name: "label"}}}
}

func (f *fixtures) countryShape() *shape.Node {
	return &shape.Node{Name: "CountryShape", Model: f.country, Fields: []shape.Field{{Name: "label"}}}
}

func (f *fixtures) pizzaShape() *shape.Node {
	return &shape.Node{
		Name:  "PizzaShape",
		Model: f.pizza,
		Fields: []shape.Field{
			{Name: "label"},
			{Name: "toppings", Shape: f.toppingShape(), Many: true},
			{Name: "provenance", Shape: f.countryShape()},
		},
	}
}

type rendererFunc func(node *shape.Node, instance any) (any, error)

func (fn rendererFunc) Render(node *shape.Node, instance any) (any, error) {
	return fn(node, instance)
}

// passthrough renders the instance unchanged; plenty for tests that
// only exercise planning and fetching.
var passthrough = rendererFunc(func(_ *shape.Node, instance any) (any, error) {
	return instance, nil
})
