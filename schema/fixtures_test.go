package schema

// Test fixtures: the pizza menu schema used throughout the module's
// tests. Continent <- Country <- Pizza, with Topping owned by Pizza and
// pointing back at Country.

func pizzaModels() (continent, country, pizza, topping *Model) {
	continent = &Model{
		Name:      "continent",
		Table:     "continent",
		PK:        "id",
		Attrs:     []string{"id", "label"},
		Relations: map[string]*Relation{},
	}
	country = &Model{
		Name:  "country",
		Table: "country",
		PK:    "id",
		Attrs: []string{"id", "label"},
	}
	pizza = &Model{
		Name:  "pizza",
		Table: "pizza",
		PK:    "id",
		Attrs: []string{"id", "label"},
	}
	topping = &Model{
		Name:  "topping",
		Table: "topping",
		PK:    "id",
		Attrs: []string{"id", "label"},
	}
	country.Relations = map[string]*Relation{
		"continent": {Name: "continent", Target: continent, LocalColumn: "continent_id"},
		"toppings":  {Name: "toppings", Target: topping, Plural: true, RemoteColumn: "origin_id"},
	}
	pizza.Relations = map[string]*Relation{
		"provenance": {Name: "provenance", Target: country, LocalColumn: "provenance_id"},
		"toppings":   {Name: "toppings", Target: topping, Plural: true, RemoteColumn: "pizza_id"},
	}
	topping.Relations = map[string]*Relation{
		"pizza":  {Name: "pizza", Target: pizza, LocalColumn: "pizza_id"},
		"origin": {Name: "origin", Target: country, LocalColumn: "origin_id"},
	}
	return continent, country, pizza, topping
}
