package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Event type constants for WebSocket messages.
const (
	EventHumanMessage  = "human.message"
	EventInstanceState = "instance.state"
)

// HumanMessageEvent is broadcast when a rule sends a human-facing message.
type HumanMessageEvent struct {
	InstanceID  string    `json:"instance_id"`
	MessageType string    `json:"message_type"`
	Content     string    `json:"content"`
	Options     []string  `json:"options,omitempty"`
	ContextID   string    `json:"context_id,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}

// InstanceStateEvent is broadcast after an event turn commits new state.
type InstanceStateEvent struct {
	InstanceID string `json:"instance_id"`
	Phase      string `json:"phase"`
	Status     string `json:"status"`
}

// BroadcastEvent marshals a typed event and broadcasts it to clients
// watching the given instance.
func (h *Hub) BroadcastEvent(ctx context.Context, instanceID, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("marshal ws event payload",
			slog.String("type", eventType), slog.Any("error", err))
		return
	}

	h.BroadcastToInstance(ctx, instanceID, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
