package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StreamKey is the span attribute naming the detection stream.
const StreamKey = attribute.Key("rmsvad.stream")

type streamIDKey struct{}

// WithStreamID returns a copy of ctx carrying the stream id. [Logger] adds it
// to every record as "stream".
func WithStreamID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, streamIDKey{}, id)
}

// StreamID returns the stream id stored by [WithStreamID], or "".
func StreamID(ctx context.Context) string {
	id, _ := ctx.Value(streamIDKey{}).(string)
	return id
}

// tracerName is the instrumentation scope name for the rmsvad tracer.
const tracerName = "github.com/MrWong99/rmsvad"

// Tracer returns the package-level [trace.Tracer]. It uses the globally
// registered [trace.TracerProvider].
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a new span and returns the updated context and span. The
// caller must call span.End() when done.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// StartStreamSpan starts a span for work on one stream. The span carries
// [StreamKey] and the returned context carries the id for [Logger].
func StartStreamSpan(ctx context.Context, name, streamID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx = WithStreamID(ctx, streamID)
	attrs = append([]attribute.KeyValue{StreamKey.String(streamID)}, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(attrs...))
}

// CorrelationID returns the trace ID of the active span in ctx, or "" when
// there is none. It is echoed to clients as X-Correlation-ID.
func CorrelationID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns the default [slog.Logger] enriched with the stream id and
// with trace_id and span_id from the span context in ctx.
func Logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if id := StreamID(ctx); id != "" {
		l = l.With(slog.String("stream", id))
	}
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		l = l.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return l
}
