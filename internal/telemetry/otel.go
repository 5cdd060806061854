// Package telemetry wires optional OpenTelemetry tracing around test runs.
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/gfaurobert/specflow"

// Config selects the OTLP endpoint. Telemetry stays off unless Enabled is
// set or an endpoint is given.
type Config struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	Headers     string `yaml:"headers"`
	ServiceName string `yaml:"service_name"`
}

// Telemetry wraps a tracer. The zero value and a nil pointer are disabled.
type Telemetry struct {
	enabled bool
	tracer  trace.Tracer
}

// ShutdownFunc flushes and stops the exporter.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init configures the OTLP gRPC trace exporter.
func Init(ctx context.Context, cfg Config, logger *zap.Logger) (*Telemetry, ShutdownFunc, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	enabled := cfg.Enabled || strings.TrimSpace(cfg.Endpoint) != ""
	if !enabled {
		return &Telemetry{}, noopShutdown, nil
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, nil, fmt.Errorf("otel endpoint required when telemetry is enabled")
	}

	options := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		options = append(options, otlptracegrpc.WithInsecure())
	}
	if headers := parseKeyValueList(cfg.Headers); len(headers) > 0 {
		options = append(options, otlptracegrpc.WithHeaders(headers))
	}
	exporter, err := otlptracegrpc.New(ctx, options...)
	if err != nil {
		return nil, nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithAttributes(attribute.String("service.name", defaultIfEmpty(cfg.ServiceName, "specflow"))),
	)
	if err != nil {
		return nil, nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)

	logger.Info("otel enabled", zap.String("endpoint", cfg.Endpoint))
	return &Telemetry{enabled: true, tracer: provider.Tracer(instrumentationName)}, provider.Shutdown, nil
}

// New wraps an existing tracer provider.
func New(provider trace.TracerProvider) *Telemetry {
	return &Telemetry{enabled: true, tracer: provider.Tracer(instrumentationName)}
}

// Enabled reports whether telemetry is active.
func (t *Telemetry) Enabled() bool {
	return t != nil && t.enabled
}

// StartSpan starts a span with string attributes. It returns a nil span when
// telemetry is disabled.
func (t *Telemetry) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, trace.Span) {
	if !t.Enabled() {
		return ctx, nil
	}
	return t.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attrs)...))
}

// EndSpan sets the span status, records err and ends the span.
func (t *Telemetry) EndSpan(span trace.Span, status string, err error, attrs map[string]string) {
	if !t.Enabled() || span == nil {
		return
	}
	if len(attrs) > 0 {
		span.SetAttributes(toAttributes(attrs)...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, status)
	}
	span.End()
}

func parseKeyValueList(value string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(value, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(kv[1])
	}
	return out
}

func toAttributes(attrs map[string]string) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for key, value := range attrs {
		kvs = append(kvs, attribute.String(key, value))
	}
	return kvs
}

func defaultIfEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
