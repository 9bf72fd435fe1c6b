// Package notifier defines the outbound human-messaging port.
package notifier

import (
	"context"
	"time"
)

// Message is one human-facing message emitted by a workflow rule.
// Types QUESTION, INSTRUCTION and CRITICAL_ISSUE await a human_input
// reply correlated by ContextID.
type Message struct {
	InstanceID  string    `json:"instance_id"`
	MessageType string    `json:"message_type"`
	Content     string    `json:"content"`
	Options     []string  `json:"options,omitempty"`
	ContextID   string    `json:"context_id,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}

// Notifier is the port interface for delivering human messages.
type Notifier interface {
	// Send delivers a message. It must not block on the human's reply.
	Send(ctx context.Context, msg Message) error
}
