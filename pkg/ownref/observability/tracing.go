package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the ownref tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("ownref")

// SpanManager handles trace span lifecycle for reclaim operations.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartReclaimSpan starts a span for a reset or close.
	// op is "reset" or "close".
	StartReclaimSpan(ctx context.Context, op, ownerID string) (context.Context, trace.Span)

	// EndReclaimSpan completes a reclaim span, recording how many
	// readers were affected and how long quiescence took.
	EndReclaimSpan(span trace.Span, readers int, wait time.Duration)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartReclaimSpan starts a span for a reset or close.
func (m *otelSpanManager) StartReclaimSpan(ctx context.Context, op, ownerID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ownref."+op,
		trace.WithAttributes(
			attribute.String("owner.id", ownerID),
			attribute.String("op", op),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndReclaimSpan completes a reclaim span.
func (m *otelSpanManager) EndReclaimSpan(span trace.Span, readers int, wait time.Duration) {
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.Int("readers", readers),
		attribute.Float64("wait_ms", float64(wait.Microseconds())/1000.0),
	)
	span.SetStatus(codes.Ok, "")
	span.End()
}
