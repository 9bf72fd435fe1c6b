package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appforge-ai/AppForge/internal/port/messagequeue"
	"github.com/appforge-ai/AppForge/internal/port/notifier"
)

// HumanNotifier publishes human-facing messages on
// human.messages.{instance_id} for external frontends to consume.
type HumanNotifier struct {
	queue messagequeue.Queue
}

// NewHumanNotifier wraps a queue as a notifier.Notifier.
func NewHumanNotifier(queue messagequeue.Queue) *HumanNotifier {
	return &HumanNotifier{queue: queue}
}

// Send implements notifier.Notifier.
func (n *HumanNotifier) Send(ctx context.Context, msg notifier.Message) error {
	payload := messagequeue.HumanMessagePayload{
		InstanceID:  msg.InstanceID,
		MessageType: msg.MessageType,
		Content:     msg.Content,
		Options:     msg.Options,
		ContextID:   msg.ContextID,
		SentAt:      msg.SentAt,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode human message for %s: %w", msg.InstanceID, err)
	}
	subject := messagequeue.SubjectHuman + "." + msg.InstanceID
	return n.queue.Publish(ctx, subject, data)
}
