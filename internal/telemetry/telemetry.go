// Package telemetry traces release runs with OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	serviceName = "changeset-releaser"
	tracerName  = "github.com/cchalm/changeset-releaser"
)

// Config holds the configuration for telemetry
type Config struct {
	Enabled        bool
	Endpoint       string // OTLP/HTTP collector host:port. Empty uses the exporter's default or OTEL_EXPORTER_OTLP_ENDPOINT
	Insecure       bool
	ServiceVersion string
}

// Provider hands out the tracer release runs record their steps with
type Provider struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
}

// NewProvider creates a provider exporting spans over OTLP/HTTP, or one that records nothing if telemetry is disabled
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	if !config.Enabled {
		log.Printf("Telemetry disabled")
		return &Provider{
			tracer:   noop.NewTracerProvider().Tracer(tracerName),
			shutdown: func(context.Context) error { return nil },
		}, nil
	}

	opts := []otlptracehttp.Option{}
	if config.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(config.Endpoint))
	}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	log.Printf("Telemetry enabled, exporting traces to %s", endpointOrDefault(config.Endpoint))
	return newProvider(sdktrace.WithBatcher(exporter), config.ServiceVersion), nil
}

// NewProviderWithExporter creates a provider that hands every span to exporter as soon as it ends
func NewProviderWithExporter(exporter sdktrace.SpanExporter) *Provider {
	return newProvider(sdktrace.WithSyncer(exporter), "")
}

func newProvider(exporterOption sdktrace.TracerProviderOption, serviceVersion string) *Provider {
	attrs := []attribute.KeyValue{attribute.String("service.name", serviceName)}
	if serviceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", serviceVersion))
	}

	tp := sdktrace.NewTracerProvider(
		exporterOption,
		sdktrace.WithResource(resource.NewSchemaless(attrs...)),
	)
	return &Provider{
		tracer:   tp.Tracer(tracerName),
		shutdown: tp.Shutdown,
	}
}

// Tracer returns the tracer to record spans with
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes buffered spans and stops the exporter
func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down telemetry provider: %w", err)
	}
	return nil
}

// EndSpan records err on span, if there is one, and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// NewRunID generates a new release run UUID
func NewRunID() string {
	return uuid.New().String()
}

func endpointOrDefault(endpoint string) string {
	if endpoint == "" {
		return "the default OTLP endpoint"
	}
	return endpoint
}
