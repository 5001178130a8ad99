// Package planid tags a planning pass with a correlation id so event
// subscribers can pair start and finish events of one pass.
package planid

import (
	"context"
	"math/rand"
)

type key struct{}

// NewContext returns a copy of parent carrying a fresh pass id, and
// the id itself. A parent already carrying an id is returned as is.
func NewContext(parent context.Context) (context.Context, int64) {
	if id, ok := FromContext(parent); ok {
		return parent, id
	}
	id := rand.Int63()
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the pass id from ctx.
func FromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(key{}).(int64)
	return id, ok
}
