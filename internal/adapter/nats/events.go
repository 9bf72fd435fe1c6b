package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/appforge-ai/AppForge/internal/domain/event"
	"github.com/appforge-ai/AppForge/internal/port/messagequeue"
)

// PublishEvent places an inbound workflow event on the queue. The HTTP
// API and the simulated agents both feed the engine this way, so every
// event takes the same at-least-once path.
func PublishEvent(ctx context.Context, queue messagequeue.Queue, ev *event.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	payload := messagequeue.EventPayload{
		EventID:    ev.ID,
		InstanceID: ev.ProjectID,
		Kind:       string(ev.Kind),
		Sender:     ev.Sender,
		ContextID:  ev.ContextID,
		Response:   ev.Response,
		Content:    ev.Content,
		CreatedAt:  ev.CreatedAt,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", ev.ID, err)
	}
	subject := messagequeue.SubjectEvents + "." + ev.ProjectID
	return queue.Publish(ctx, subject, data)
}

// SubscribeEvents feeds every inbound workflow event to submit,
// typically the engine pool. The returned function cancels the
// subscription.
func SubscribeEvents(ctx context.Context, queue messagequeue.Queue, submit func(context.Context, *event.Event) error) (func(), error) {
	subject := messagequeue.SubjectEvents + ".>"
	return queue.Subscribe(ctx, subject, func(ctx context.Context, _ string, data []byte) error {
		var payload messagequeue.EventPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("decode event payload: %w", err)
		}
		ev := &event.Event{
			ID:        payload.EventID,
			ProjectID: payload.InstanceID,
			Kind:      event.Kind(payload.Kind),
			Sender:    payload.Sender,
			ContextID: payload.ContextID,
			Response:  payload.Response,
			Content:   payload.Content,
			CreatedAt: payload.CreatedAt,
		}
		return submit(ctx, ev)
	})
}
