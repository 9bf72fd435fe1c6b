package ws

import (
	"context"

	"github.com/appforge-ai/AppForge/internal/port/notifier"
)

// Notifier delivers human-facing workflow messages over the hub.
type Notifier struct {
	hub *Hub
}

func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

var _ notifier.Notifier = (*Notifier)(nil)

// Send broadcasts the message to clients watching its instance.
// Delivery is best-effort; a client with no open socket simply misses
// the frame and catches up from the processed-event archive.
func (n *Notifier) Send(ctx context.Context, msg notifier.Message) error {
	n.hub.BroadcastEvent(ctx, msg.InstanceID, EventHumanMessage, HumanMessageEvent{
		InstanceID:  msg.InstanceID,
		MessageType: msg.MessageType,
		Content:     msg.Content,
		Options:     msg.Options,
		ContextID:   msg.ContextID,
		SentAt:      msg.SentAt,
	})
	return nil
}
