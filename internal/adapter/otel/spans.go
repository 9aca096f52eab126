package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "lifecycle"

// StartRunSpan starts a span for one lifecycle run.
func StartRunSpan(ctx context.Context, runID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "lifecycle.run",
		trace.WithAttributes(attribute.String("run.id", runID)),
	)
}

// StartPhaseSpan starts a span for a run phase (scan, select, dispatch).
func StartPhaseSpan(ctx context.Context, phase string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "lifecycle."+phase)
}

// StartDispatchSpan starts a span for one warning delivery.
func StartDispatchSpan(ctx context.Context, tenantID int64, notificationType string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "lifecycle.dispatch",
		trace.WithAttributes(
			attribute.Int64("tenant.id", tenantID),
			attribute.String("notification.type", notificationType),
		),
	)
}
