package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name used for marketplace spans.
const TracerName = "github.com/vango-dev/marketplace"

// Tracer returns the marketplace tracer from the global provider. Spans are
// no-ops unless the host process installs a tracer provider:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartOperation starts an internal span named "marketplace.<op>" tagged
// with the plugin key.
func StartOperation(ctx context.Context, tracer trace.Tracer, op, plugin string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = Tracer()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	attrs = append([]attribute.KeyValue{
		attribute.String("marketplace.op", op),
		attribute.String("marketplace.plugin", plugin),
	}, attrs...)
	return tracer.Start(ctx, "marketplace."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// EndOperation records the outcome on span and ends it. A rejected
// operation (an expected failure such as "not installed") is not a span
// error; only err marks the span as failed.
func EndOperation(span trace.Span, outcome, code string, err error) {
	span.SetAttributes(attribute.String("marketplace.outcome", outcome))
	if code != "" {
		span.SetAttributes(attribute.String("marketplace.code", code))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
