package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "appforge"

// StartEventSpan starts a span covering one workflow event turn.
func StartEventSpan(ctx context.Context, eventID, instanceID, kind string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "event",
		trace.WithAttributes(
			attribute.String("event.id", eventID),
			attribute.String("instance.id", instanceID),
			attribute.String("event.kind", kind),
		),
	)
}

// StartDelegationSpan starts a span for dispatching a task delegation.
func StartDelegationSpan(ctx context.Context, agent, task, contextID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "delegation",
		trace.WithAttributes(
			attribute.String("agent.name", agent),
			attribute.String("delegation.task", task),
			attribute.String("delegation.context_id", contextID),
		),
	)
}
