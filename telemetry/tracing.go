package telemetry

import (
	"context"
	"fmt"
	"os"

	"github.com/signalsfoundry/frametree/graph"
	"github.com/signalsfoundry/frametree/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig governs how frametree tracing is initialised. There is no
// OTLP/gRPC exporter option: frametree is a synchronous, in-process
// library with no network transport of its own, so only the stdout
// exporter — useful for local debugging and tests — is wired.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	SampleRatio float64
}

// InitTracing wires a tracer provider and stdout exporter based on cfg. It
// returns a shutdown function to flush spans, and a Tracer ready to pass to
// graph.WithTracer / BufferedTree construction.
func InitTracing(ctx context.Context, cfg TracingConfig, log logging.Logger) (*Tracer, func(context.Context) error, error) {
	if log == nil {
		log = logging.Noop()
	}

	if !cfg.Enabled {
		log.Info(ctx, "tracing disabled; using noop tracer")
		return &Tracer{tracer: trace.NewNoopTracerProvider().Tracer("frametree")}, func(context.Context) error { return nil }, nil
	}

	exp, err := stdouttrace.New(
		stdouttrace.WithWriter(os.Stdout),
		stdouttrace.WithPrettyPrint(),
		stdouttrace.WithoutTimestamps(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create stdout exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", cfg.ServiceName),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("create resource: %w", err)
	}

	ratio := cfg.SampleRatio
	if ratio <= 0 {
		ratio = 1.0
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	log.Info(ctx, "tracing enabled", logging.String("service_name", cfg.ServiceName))
	return &Tracer{tracer: tp.Tracer("frametree")}, tp.Shutdown, nil
}

// Tracer adapts an OpenTelemetry trace.Tracer to the graph.Tracer /
// BufferedTree span interface, which takes no context.Context — frametree's
// public operations are fully synchronous with no I/O, so spans are rooted
// against context.Background() rather than threading a caller context
// through every API method.
type Tracer struct {
	tracer trace.Tracer
}

// Span implements graph.Tracer (and is reused by BufferedTree), rooting
// every span against context.Background() since frametree's public API is
// fully synchronous and accepts no caller context.
func (t *Tracer) Span(name string, attrs ...graph.KV) func() {
	attributes := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		attributes = append(attributes, attribute.String(a.Key, a.Value))
	}
	_, span := t.tracer.Start(context.Background(), name, trace.WithAttributes(attributes...))
	return func() { span.End() }
}
