package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TraceSpawn starts a span around spawning a session's child process.
func TraceSpawn(ctx context.Context, sessionID, program, workDir string, rows, cols int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "terminal.spawn",
		trace.WithAttributes(
			attribute.String("session_id", sessionID),
			attribute.String("program", program),
			attribute.String("workdir", workDir),
			attribute.Int("rows", rows),
			attribute.Int("cols", cols),
		),
	)
}

// TraceResize records a grid resize as a short span.
func TraceResize(ctx context.Context, sessionID string, rows, cols int) {
	_, span := tracer().Start(ctx, "terminal.resize",
		trace.WithAttributes(
			attribute.String("session_id", sessionID),
			attribute.Int("rows", rows),
			attribute.Int("cols", cols),
		),
	)
	span.End()
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
