package observability

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// InitTracer wires a tracer provider for a single run and sets it as the
// global provider, adapted from the teacher's InitTracer (which shipped
// spans to a Jaeger/Zipkin collector). WorkDataHub is a single-process
// batch job with no tracing collector to talk to, so spans are written as
// newline-delimited JSON to w instead -- still inspectable per run, with
// no network dependency.
func InitTracer(serviceName string, w io.Writer) (*sdktrace.TracerProvider, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		)),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// StartSpan starts a new span under tracer and returns the derived context.
func StartSpan(ctx context.Context, tracer trace.Tracer, operation string) (context.Context, trace.Span) {
	return tracer.Start(ctx, operation)
}

// Tracer returns a tracer named for the given component, via the global
// provider InitTracer installed.
func Tracer(component string) trace.Tracer {
	return otel.Tracer(component)
}
