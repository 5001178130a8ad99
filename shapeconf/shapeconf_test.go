package shapeconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaxDude132/prefetcher/relpath"
	"github.com/MaxDude132/prefetcher/sqlstore"
)

const pizzaConf = `
model "country" {
  pk    = "id"
  table = "countries"
  attrs = ["id", "label"]
}

model "topping" {
  pk    = "id"
  table = "toppings"
  attrs = ["id", "label", "pizza_id", "origin_id"]

  relation "origin" {
    target       = "country"
    local_column = "origin_id"
  }
}

model "pizza" {
  pk    = "id"
  table = "pizzas"
  attrs = ["id", "label", "provenance_id"]

  relation "provenance" {
    target       = "country"
    local_column = "provenance_id"
  }

  relation "toppings" {
    target        = "topping"
    plural        = true
    remote_column = "pizza_id"
  }
}

shape "country_summary" {
  model = "country"

  field "label" {}
}

shape "pizza_detail" {
  model = "pizza"
  eager = ["provenance"]

  field "label" {}

  field "toppings" {
    shape = "topping_summary"
    many  = true
  }

  field "provenance" {
    shape = "country_summary"
  }

  batch {
    through = "toppings"
    to      = "eu_toppings"
    where   = "origin_id = 1"
  }

  satellite {
    through = "toppings__origin"
    shape   = "country_summary"
  }
}

shape "topping_summary" {
  model = "topping"

  field "label" {}
}
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(pizzaConf), "pizza.hcl")
	require.NoError(t, err)

	pizza, err := cfg.Model("pizza")
	require.NoError(t, err)
	assert.Equal(t, "pizzas", pizza.Table)
	assert.Equal(t, "id", pizza.PK)

	prov := pizza.Relation("provenance")
	require.NotNil(t, prov)
	assert.Equal(t, "provenance_id", prov.LocalColumn)
	assert.False(t, prov.Plural)

	country, err := cfg.Model("country")
	require.NoError(t, err)
	assert.Same(t, country, prov.Target)

	toppings := pizza.Relation("toppings")
	require.NotNil(t, toppings)
	assert.True(t, toppings.Plural)
	assert.Equal(t, "pizza_id", toppings.RemoteColumn)
}

func TestParseShapeLinks(t *testing.T) {
	cfg, err := Parse([]byte(pizzaConf), "pizza.hcl")
	require.NoError(t, err)

	detail, err := cfg.Shape("pizza_detail")
	require.NoError(t, err)
	require.Len(t, detail.Fields, 3)

	// Forward reference: topping_summary is declared after its use.
	summary, err := cfg.Shape("topping_summary")
	require.NoError(t, err)
	assert.Same(t, summary, detail.Fields[1].Shape)
	assert.True(t, detail.Fields[1].Many)

	assert.Equal(t, []string{"provenance"}, detail.EagerNames())

	require.Len(t, detail.Batch, 1)
	rel := detail.Batch[0]
	assert.Equal(t, "toppings", rel.Through)
	assert.Equal(t, "eu_toppings", rel.To)
	cond, ok := rel.Filter.(*sqlstore.Cond)
	require.True(t, ok)
	assert.Equal(t, "origin_id = 1", cond.Expr)

	require.Len(t, detail.Satellites, 1)
	assert.Equal(t, relpath.Plain("toppings__origin"), detail.Satellites[0].Rel)
	assert.Same(t, cfg.Shapes["country_summary"], detail.Satellites[0].Shape)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pizza.hcl")
	require.NoError(t, os.WriteFile(path, []byte(pizzaConf), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Models, 3)
	assert.Len(t, cfg.Shapes, 3)
}

func TestParseUnknownReferences(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "relation target",
			src: `
model "pizza" {
  pk = "id"
  relation "provenance" { target = "country" }
}`,
			want: `targets unknown model "country"`,
		},
		{
			name: "shape model",
			src:  `shape "s" { model = "nope" }`,
			want: `unknown model "nope"`,
		},
		{
			name: "field shape",
			src: `
shape "s" {
  field "f" { shape = "nope" }
}`,
			want: `unknown shape "nope"`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.src), "bad.hcl")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseDuplicateModel(t *testing.T) {
	src := `
model "pizza" { pk = "id" }
model "pizza" { pk = "id" }
`
	_, err := Parse([]byte(src), "dup.hcl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate model "pizza"`)
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Parse([]byte(`model "x" {`), "broken.hcl")
	assert.Error(t, err)
}
