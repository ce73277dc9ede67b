// Package tracing exports spans for terminal session lifecycle events over
// OTLP/HTTP. Until Setup installs an exporter, spans are no-ops.
package tracing

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceName = "ptyterm"
	tracerName  = "ptyterm-terminal"
)

// Settings selects the collector. An empty Endpoint leaves tracing off.
type Settings struct {
	// Endpoint is the collector URL, e.g. http://localhost:4318. A bare
	// host:port is sent over plain HTTP.
	Endpoint string
	// SampleRatio is the fraction of root spans kept, between 0 and 1.
	SampleRatio float64
}

// ShutdownFunc flushes pending spans.
type ShutdownFunc func(context.Context) error

// Setup installs the global tracer provider described by s and returns the
// function that flushes it on exit.
func Setup(ctx context.Context, s Settings) (ShutdownFunc, error) {
	if s.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpointURL(s.Endpoint)))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		res = resource.Default()
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(s.SampleRatio))),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

func endpointURL(endpoint string) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "http://" + endpoint
}

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
