package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/appforge-ai/AppForge/internal/engine"
	"github.com/appforge-ai/AppForge/internal/port/eventlog"
)

const meterName = "appforge"

// Metrics holds all AppForge engine metric instruments.
type Metrics struct {
	eventsProcessed metric.Int64Counter
	delegations     metric.Int64Counter
	humanMessages   metric.Int64Counter
	eventDuration   metric.Float64Histogram
}

var _ engine.Metrics = (*Metrics)(nil)

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.eventsProcessed, err = meter.Int64Counter("appforge.events.processed",
		metric.WithDescription("Workflow events processed, by kind and outcome"))
	if err != nil {
		return nil, err
	}

	m.delegations, err = meter.Int64Counter("appforge.delegations.sent",
		metric.WithDescription("Task delegations dispatched, by agent"))
	if err != nil {
		return nil, err
	}

	m.humanMessages, err = meter.Int64Counter("appforge.human_messages.sent",
		metric.WithDescription("Human-facing messages sent, by message type"))
	if err != nil {
		return nil, err
	}

	m.eventDuration, err = meter.Float64Histogram("appforge.event.duration_seconds",
		metric.WithDescription("Time spent processing one workflow event"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) EventProcessed(ctx context.Context, kind string, outcome eventlog.Outcome, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("event.kind", kind),
		attribute.String("event.outcome", string(outcome)),
	)
	m.eventsProcessed.Add(ctx, 1, attrs)
	m.eventDuration.Record(ctx, d.Seconds(), attrs)
}

func (m *Metrics) DelegationSent(ctx context.Context, agent string) {
	m.delegations.Add(ctx, 1, metric.WithAttributes(attribute.String("agent.name", agent)))
}

func (m *Metrics) HumanMessageSent(ctx context.Context, messageType string) {
	m.humanMessages.Add(ctx, 1, metric.WithAttributes(attribute.String("message.type", messageType)))
}
