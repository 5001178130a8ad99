package planner

import (
	"context"
	"time"

	eventbus "github.com/MaxDude132/prefetcher/internal/eventbus"
	events "github.com/MaxDude132/prefetcher/internal/events"
	planid "github.com/MaxDude132/prefetcher/internal/planid"
	"github.com/MaxDude132/prefetcher/shape"
	"github.com/MaxDude132/prefetcher/store"
)

// Renderer turns a shape tree plus a fetched instance into the output
// representation. Rendering is not the planner's concern; this is the
// delegation boundary.
type Renderer interface {
	Render(node *shape.Node, instance any) (any, error)
}

// Option adjusts one Render invocation.
type Option func(*renderConfig)

type renderConfig struct {
	autoPlan bool
	renderer Renderer
}

// WithAutoPlan toggles automatic planning for this invocation. With
// auto-planning off the instance is rendered as-is.
func WithAutoPlan(enabled bool) Option {
	return func(c *renderConfig) { c.autoPlan = enabled }
}

// WithRenderer overrides the planner's renderer for this invocation.
func WithRenderer(r Renderer) Option {
	return func(c *renderConfig) { c.renderer = r }
}

// Render is the end-to-end entry point: it plans the shape tree,
// applies the plan to instance, marks the instance planned, runs the
// registered hooks and delegates to the renderer.
//
// Planning is skipped when the instance was already planned, when
// auto-planning is disabled, when the record's relation cache was
// populated by an unrelated mechanism, or when the instance is not a
// store-backed kind at all (a plain map). Rendering still happens in
// all of those cases. A planning or fetching failure aborts before any
// rendering.
func (p *Planner) Render(ctx context.Context, node *shape.Node, instance any, opts ...Option) (any, error) {
	cfg := renderConfig{autoPlan: true, renderer: p.renderer}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.renderer == nil {
		return nil, errNilRenderer(node)
	}
	ctx, _ = planid.NewContext(ctx)

	if cfg.autoPlan && plannable(instance) && !isPlanned(instance) && !prepopulated(instance) {
		fetched, err := p.planAndFetch(ctx, node, instance)
		if err != nil {
			return nil, err
		}
		instance = fetched
	}

	if node.BeforeRender != nil {
		instance = node.BeforeRender(instance)
	}

	eventbus.Publish(ctx, events.RenderStart{Shape: node.DisplayName()})
	started := time.Now()
	out, err := cfg.renderer.Render(node, instance)
	eventbus.Publish(ctx, events.RenderFinish{
		Shape:    node.DisplayName(),
		Err:      err,
		Duration: time.Since(started),
	})
	return out, err
}

func (p *Planner) planAndFetch(ctx context.Context, node *shape.Node, instance any) (any, error) {
	ctx, _ = planid.NewContext(ctx)
	name := node.DisplayName()

	eventbus.Publish(ctx, events.PlanStart{Shape: name})
	started := time.Now()
	plan, err := p.Plan(node)
	var eagerPaths, batchPaths []string
	if plan != nil {
		eagerPaths, batchPaths = plan.EagerPaths(), plan.BatchPaths()
	}
	eventbus.Publish(ctx, events.PlanFinish{
		Shape:      name,
		EagerPaths: eagerPaths,
		BatchPaths: batchPaths,
		Err:        err,
		Duration:   time.Since(started),
	})
	if err != nil {
		return nil, err
	}

	kind := "materialized"
	if _, lazy := instance.(store.Query); lazy {
		kind = "lazy"
	}
	eventbus.Publish(ctx, events.FetchStart{Shape: name, Kind: kind, Paths: append(eagerPaths, batchPaths...)})
	started = time.Now()
	fetched, err := p.Apply(ctx, instance, plan)
	if err == nil {
		if q, ok := fetched.(store.Query); ok {
			fetched, err = q.Materialize(ctx)
		}
	}
	eventbus.Publish(ctx, events.FetchFinish{
		Shape:    name,
		Kind:     kind,
		Err:      err,
		Duration: time.Since(started),
	})
	if err != nil {
		return nil, err
	}

	markPlanned(fetched)
	plan.runAfterFetch()
	return fetched, nil
}
