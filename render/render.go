// Package render turns a shape tree plus fetched records into plain Go
// values (maps and slices) and JSON. It reads only the relation caches
// the planner populated; it never reaches back into the store.
package render

import (
	"fmt"
	"strings"

	"github.com/ohler55/ojg/oj"

	"github.com/MaxDude132/prefetcher/relpath"
	"github.com/MaxDude132/prefetcher/shape"
	"github.com/MaxDude132/prefetcher/store"
)

// Renderer implements planner.Renderer.
type Renderer struct{}

// New returns a Renderer.
func New() *Renderer { return &Renderer{} }

// Render renders instance according to node. Collections and record
// slices become []any; a single record becomes map[string]any; a plain
// map instance is rendered field-by-field like a record.
func (r *Renderer) Render(node *shape.Node, instance any) (any, error) {
	switch v := instance.(type) {
	case *store.Collection:
		return r.renderRecords(node, v.Records)
	case []*store.Record:
		return r.renderRecords(node, v)
	case *store.Record:
		return r.renderRecord(node, v)
	case map[string]any:
		return r.renderMap(node, v)
	default:
		return nil, fmt.Errorf("render: cannot render %T against shape %s", instance, node.DisplayName())
	}
}

func (r *Renderer) renderRecords(node *shape.Node, records []*store.Record) ([]any, error) {
	out := make([]any, len(records))
	for i, rec := range records {
		m, err := r.renderRecord(node, rec)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

func (r *Renderer) renderRecord(node *shape.Node, rec *store.Record) (map[string]any, error) {
	out := make(map[string]any, len(node.Fields))
	for _, f := range node.Fields {
		if f.WriteOnly {
			continue
		}
		if f.Shape == nil {
			v, _ := rec.Get(f.Name)
			out[f.Name] = v
			continue
		}
		v, err := r.renderNested(f, rec)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

// renderNested renders one shape-valued field from the record's
// relation cache, traversing multi-segment sources one hop at a time.
func (r *Renderer) renderNested(f shape.Field, rec *store.Record) (any, error) {
	segs := strings.Split(f.PlanSource(), relpath.Separator)
	frontier := []*store.Record{rec}
	for _, seg := range segs {
		next := make([]*store.Record, 0, len(frontier))
		for _, cur := range frontier {
			recs, ok := cur.Related(seg)
			if !ok {
				// Not a fetched relation; fall back to a raw attribute
				// holding a nested map.
				if v, found := cur.Get(seg); found {
					if m, isMap := v.(map[string]any); isMap {
						return r.renderMap(f.Shape, m)
					}
				}
				continue
			}
			next = append(next, recs...)
		}
		frontier = next
	}

	if f.Many {
		return r.renderRecords(f.Shape, frontier)
	}
	if len(frontier) == 0 {
		return nil, nil
	}
	return r.renderRecord(f.Shape, frontier[0])
}

func (r *Renderer) renderMap(node *shape.Node, m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(node.Fields))
	for _, f := range node.Fields {
		if f.WriteOnly {
			continue
		}
		v := m[f.Name]
		if f.Shape != nil {
			if nested, ok := v.(map[string]any); ok {
				sub, err := r.renderMap(f.Shape, nested)
				if err != nil {
					return nil, err
				}
				v = sub
			}
		}
		out[f.Name] = v
	}
	return out, nil
}

// JSON renders instance and encodes the result with two-space
// indentation.
func (r *Renderer) JSON(node *shape.Node, instance any) (string, error) {
	v, err := r.Render(node, instance)
	if err != nil {
		return "", err
	}
	return oj.JSON(v, &oj.Options{Indent: 2, Sort: true}), nil
}
