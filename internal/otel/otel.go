package otel

import (
	"context"
	"sync"

	eventbus "github.com/MaxDude132/prefetcher/internal/eventbus"
	events "github.com/MaxDude132/prefetcher/internal/events"
	planid "github.com/MaxDude132/prefetcher/internal/planid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers
// translating planner lifecycle events into spans. If endpoint is
// empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithInsecure()))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	sub := &subscriber{tracer: otel.Tracer("prefetcher")}
	sub.register()

	return tp.Shutdown, nil
}

type subscriber struct {
	tracer      trace.Tracer
	planSpans   sync.Map // pass id -> trace.Span
	fetchSpans  sync.Map // pass id -> trace.Span
	renderSpans sync.Map // pass id -> trace.Span
}

func (s *subscriber) register() {
	eventbus.Subscribe(func(ctx context.Context, e events.PlanStart) {
		pid, _ := planid.FromContext(ctx)
		_, span := s.tracer.Start(ctx, "prefetch.plan")
		span.SetAttributes(attribute.String("prefetch.shape", e.Shape))
		s.planSpans.Store(pid, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.PlanFinish) {
		pid, _ := planid.FromContext(ctx)
		v, ok := s.planSpans.LoadAndDelete(pid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.SetAttributes(
			attribute.StringSlice("prefetch.eager_paths", e.EagerPaths),
			attribute.StringSlice("prefetch.batch_paths", e.BatchPaths),
		)
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.FetchStart) {
		pid, _ := planid.FromContext(ctx)
		parent := ctx
		if v, ok := s.planSpans.Load(pid); ok {
			parent = trace.ContextWithSpan(ctx, v.(trace.Span))
		}
		_, span := s.tracer.Start(parent, "prefetch.fetch")
		span.SetAttributes(
			attribute.String("prefetch.shape", e.Shape),
			attribute.String("prefetch.kind", e.Kind),
			attribute.StringSlice("prefetch.paths", e.Paths),
		)
		s.fetchSpans.Store(pid, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.FetchFinish) {
		pid, _ := planid.FromContext(ctx)
		v, ok := s.fetchSpans.LoadAndDelete(pid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.End()
	})

	eventbus.Subscribe(func(ctx context.Context, e events.RenderStart) {
		pid, _ := planid.FromContext(ctx)
		_, span := s.tracer.Start(ctx, "prefetch.render")
		span.SetAttributes(attribute.String("prefetch.shape", e.Shape))
		s.renderSpans.Store(pid, span)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.RenderFinish) {
		pid, _ := planid.FromContext(ctx)
		v, ok := s.renderSpans.LoadAndDelete(pid)
		if !ok {
			return
		}
		span := v.(trace.Span)
		if e.Err != nil {
			span.RecordError(e.Err)
		}
		span.End()
	})
}
