// Package shapeconf loads model and shape declarations from HCL
// configuration, for callers that drive the planner from a config file
// instead of constructing shapes in code.
package shapeconf

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/MaxDude132/prefetcher/relpath"
	"github.com/MaxDude132/prefetcher/schema"
	"github.com/MaxDude132/prefetcher/shape"
	"github.com/MaxDude132/prefetcher/sqlstore"
)

// Config is the resolved content of a configuration file: models keyed
// by name and shapes keyed by name, with all cross-references linked.
type Config struct {
	Models map[string]*schema.Model
	Shapes map[string]*shape.Node
}

// Model returns the named model, or an error naming the miss.
func (c *Config) Model(name string) (*schema.Model, error) {
	m, ok := c.Models[name]
	if !ok {
		return nil, fmt.Errorf("shapeconf: no model %q", name)
	}
	return m, nil
}

// Shape returns the named shape, or an error naming the miss.
func (c *Config) Shape(name string) (*shape.Node, error) {
	s, ok := c.Shapes[name]
	if !ok {
		return nil, fmt.Errorf("shapeconf: no shape %q", name)
	}
	return s, nil
}

type fileBlock struct {
	Models []modelBlock `hcl:"model,block"`
	Shapes []shapeBlock `hcl:"shape,block"`
}

type modelBlock struct {
	Name      string          `hcl:"name,label"`
	Table     string          `hcl:"table,optional"`
	PK        string          `hcl:"pk"`
	Attrs     []string        `hcl:"attrs,optional"`
	Relations []relationBlock `hcl:"relation,block"`
}

type relationBlock struct {
	Name         string `hcl:"name,label"`
	Target       string `hcl:"target"`
	Plural       bool   `hcl:"plural,optional"`
	LocalColumn  string `hcl:"local_column,optional"`
	RemoteColumn string `hcl:"remote_column,optional"`
}

type shapeBlock struct {
	Name       string           `hcl:"name,label"`
	Model      string           `hcl:"model,optional"`
	Eager      []string         `hcl:"eager,optional"`
	ForceBatch []string         `hcl:"force_batch,optional"`
	Fields     []fieldBlock     `hcl:"field,block"`
	Batches    []batchBlock     `hcl:"batch,block"`
	Satellites []satelliteBlock `hcl:"satellite,block"`
}

type fieldBlock struct {
	Name      string `hcl:"name,label"`
	Source    string `hcl:"source,optional"`
	Shape     string `hcl:"shape,optional"`
	Many      bool   `hcl:"many,optional"`
	WriteOnly bool   `hcl:"write_only,optional"`
}

type batchBlock struct {
	Through string `hcl:"through"`
	To      string `hcl:"to,optional"`
	Where   string `hcl:"where,optional"`
}

type satelliteBlock struct {
	Through string `hcl:"through"`
	To      string `hcl:"to,optional"`
	Shape   string `hcl:"shape"`
}

// Load reads and resolves the configuration file at path.
func Load(path string) (*Config, error) {
	var raw fileBlock
	if err := hclsimple.DecodeFile(path, nil, &raw); err != nil {
		return nil, fmt.Errorf("shapeconf: %w", err)
	}
	return resolve(&raw)
}

// Parse decodes configuration from src. filename is used in
// diagnostics and must carry an .hcl or .json suffix.
func Parse(src []byte, filename string) (*Config, error) {
	var raw fileBlock
	if err := hclsimple.Decode(filename, src, nil, &raw); err != nil {
		return nil, fmt.Errorf("shapeconf: %w", err)
	}
	return resolve(&raw)
}

// resolve links the decoded blocks into schema models and shape nodes.
// Models resolve before shapes; shapes resolve in two passes so they
// can reference each other in any order, including cyclically.
func resolve(raw *fileBlock) (*Config, error) {
	cfg := &Config{
		Models: make(map[string]*schema.Model, len(raw.Models)),
		Shapes: make(map[string]*shape.Node, len(raw.Shapes)),
	}

	for _, mb := range raw.Models {
		if _, dup := cfg.Models[mb.Name]; dup {
			return nil, fmt.Errorf("shapeconf: duplicate model %q", mb.Name)
		}
		cfg.Models[mb.Name] = &schema.Model{
			Name:  mb.Name,
			Table: mb.Table,
			PK:    mb.PK,
			Attrs: mb.Attrs,
		}
	}
	for _, mb := range raw.Models {
		m := cfg.Models[mb.Name]
		if len(mb.Relations) > 0 {
			m.Relations = make(map[string]*schema.Relation, len(mb.Relations))
		}
		for _, rb := range mb.Relations {
			target, ok := cfg.Models[rb.Target]
			if !ok {
				return nil, fmt.Errorf("shapeconf: relation %s.%s targets unknown model %q",
					mb.Name, rb.Name, rb.Target)
			}
			m.Relations[rb.Name] = &schema.Relation{
				Name:         rb.Name,
				Target:       target,
				Plural:       rb.Plural,
				LocalColumn:  rb.LocalColumn,
				RemoteColumn: rb.RemoteColumn,
			}
		}
	}

	for _, sb := range raw.Shapes {
		if _, dup := cfg.Shapes[sb.Name]; dup {
			return nil, fmt.Errorf("shapeconf: duplicate shape %q", sb.Name)
		}
		cfg.Shapes[sb.Name] = &shape.Node{Name: sb.Name}
	}
	for _, sb := range raw.Shapes {
		node := cfg.Shapes[sb.Name]
		if sb.Model != "" {
			m, ok := cfg.Models[sb.Model]
			if !ok {
				return nil, fmt.Errorf("shapeconf: shape %q names unknown model %q", sb.Name, sb.Model)
			}
			node.Model = m
		}
		node.Eager = sb.Eager
		node.ForceBatch = sb.ForceBatch

		for _, bb := range sb.Batches {
			if bb.Through == "" {
				return nil, fmt.Errorf("shapeconf: shape %q has a batch block without a through path", sb.Name)
			}
			node.Batch = append(node.Batch, relpath.Fetch(bb.Through, bb.To, cond(bb.Where)))
		}

		for _, fb := range sb.Fields {
			f := shape.Field{
				Name:      fb.Name,
				Source:    fb.Source,
				Many:      fb.Many,
				WriteOnly: fb.WriteOnly,
			}
			if fb.Shape != "" {
				sub, ok := cfg.Shapes[fb.Shape]
				if !ok {
					return nil, fmt.Errorf("shapeconf: field %s.%s names unknown shape %q",
						sb.Name, fb.Name, fb.Shape)
				}
				f.Shape = sub
			}
			node.Fields = append(node.Fields, f)
		}

		for _, stb := range sb.Satellites {
			sub, ok := cfg.Shapes[stb.Shape]
			if !ok {
				return nil, fmt.Errorf("shapeconf: satellite %q of shape %q names unknown shape %q",
					stb.Through, sb.Name, stb.Shape)
			}
			node.Satellites = append(node.Satellites, shape.Satellite{
				Rel:   relpath.Fetch(stb.Through, stb.To, nil),
				Shape: sub,
			})
		}
	}

	return cfg, nil
}

// cond wraps a non-empty where clause as the store filter carried on a
// batch rel.
func cond(where string) any {
	if where == "" {
		return nil
	}
	return &sqlstore.Cond{Expr: where}
}
