package tracer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// Logger defines the logging operations used by the tracer.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
}

// Tracer provides a simplified API for distributed tracing with OpenTelemetry.
// It wraps the OpenTelemetry TracerProvider and provides convenient methods for
// creating spans, recording errors, and propagating trace context across service boundaries.
//
// The Tracer is safe to share across goroutines.
type Tracer struct {
	tracer     *trace.TracerProvider
	propagator propagation.TextMapPropagator
	logger     Logger
}

// NewClient creates a Tracer, registers it as the global OpenTelemetry
// provider and installs the W3C trace context and baggage propagators.
//
// With cfg.EnableExport an OTLP/HTTP exporter is attached through a batching
// span processor.
//
// Example:
//
//	t, err := tracer.NewClient(tracer.Config{ServiceName: "fanout-relay", AppEnv: "production"}, log)
//	if err != nil {
//	    return err
//	}
//	ctx, span := t.StartSpan(ctx, "parallel-search")
//	defer span.End()
func NewClient(cfg Config, logger Logger) (*Tracer, error) {
	var options []trace.TracerProviderOption

	if cfg.EnableExport {
		var clientOpts []otlptracehttp.Option
		if cfg.Endpoint != "" {
			clientOpts = append(clientOpts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			clientOpts = append(clientOpts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptrace.New(context.Background(), otlptracehttp.NewClient(clientOpts...))
		if err != nil {
			return nil, fmt.Errorf("tracer: create exporter: %w", err)
		}
		options = append(options, trace.WithBatcher(exporter))
	}

	t := newTracer(cfg, logger, options...)
	otel.SetTracerProvider(t.tracer)
	otel.SetTextMapPropagator(t.propagator)

	if logger != nil {
		logger.Info("Tracer initialised", nil, map[string]interface{}{
			"service": cfg.ServiceName,
			"export":  cfg.EnableExport,
		})
	}
	return t, nil
}

// NewClientWithProcessor builds a Tracer that hands finished spans to
// processor instead of an exporter. It does not touch the global provider.
func NewClientWithProcessor(cfg Config, processor trace.SpanProcessor) *Tracer {
	return newTracer(cfg, nil, trace.WithSpanProcessor(processor))
}

func newTracer(cfg Config, logger Logger, options ...trace.TracerProviderOption) *Tracer {
	options = append(options, trace.WithResource(resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironment(cfg.AppEnv),
		attribute.String("environment", cfg.AppEnv),
	)))

	return &Tracer{
		tracer:     trace.NewTracerProvider(options...),
		propagator: propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}),
		logger:     logger,
	}
}

// Shutdown flushes pending spans and releases exporter resources.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.tracer == nil {
		return nil
	}
	return t.tracer.Shutdown(ctx)
}
