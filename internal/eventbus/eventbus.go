// Package eventbus is a minimal in-process dispatcher decoupling the
// planner from its observers. The planner publishes lifecycle events;
// telemetry subscribes without the planner importing any of it.
package eventbus

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
)

// Handler consumes events of type T.
type Handler[T any] func(context.Context, T)

type erased func(context.Context, any)

// Bus dispatches events to handlers registered for their dynamic type.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[reflect.Type]map[int]erased
}

// New returns an empty Bus.
func New() *Bus { return &Bus{handlers: make(map[reflect.Type]map[int]erased)} }

func (b *Bus) on(t reflect.Type, h erased) (off func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	set := b.handlers[t]
	if set == nil {
		set = make(map[int]erased)
		b.handlers[t] = set
	}
	set[id] = h
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set := b.handlers[t]; set != nil {
			delete(set, id)
			if len(set) == 0 {
				delete(b.handlers, t)
			}
		}
	}
}

func (b *Bus) emit(ctx context.Context, e any) {
	if b == nil {
		return
	}
	t := reflect.TypeOf(e)
	b.mu.RLock()
	set := b.handlers[t]
	if len(set) == 0 {
		b.mu.RUnlock()
		return
	}
	hs := make([]erased, 0, len(set))
	for _, h := range set {
		hs = append(hs, h)
	}
	b.mu.RUnlock()
	for _, h := range hs {
		h(ctx, e)
	}
}

var global atomic.Pointer[Bus]

func init() { global.Store(New()) }

// Use installs b as the process-wide bus. A nil bus drops all events.
func Use(b *Bus) { global.Store(b) }

// Subscribe registers h on the process-wide bus for events of type T.
// The returned func removes the subscription.
func Subscribe[T any](h Handler[T]) (off func()) {
	b := global.Load()
	if b == nil {
		return func() {}
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	return b.on(t, func(ctx context.Context, v any) { h(ctx, v.(T)) })
}

// Publish dispatches e on the process-wide bus. A no-op when no bus is
// installed or nothing subscribed to T.
func Publish[T any](ctx context.Context, e T) {
	global.Load().emit(ctx, e)
}
