package messagequeue

import "time"

// EventPayload is the schema for workflow.events.* messages.
type EventPayload struct {
	EventID    string         `json:"event_id"`
	InstanceID string         `json:"instance_id"`
	Kind       string         `json:"kind"`
	Sender     string         `json:"sender,omitempty"`
	ContextID  string         `json:"context_id,omitempty"`
	Response   string         `json:"response,omitempty"`
	Content    map[string]any `json:"content,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// DelegationPayload is the schema for agents.tasks.* messages.
type DelegationPayload struct {
	InstanceID string         `json:"instance_id"`
	Agent      string         `json:"agent"`
	Task       string         `json:"task"`
	ContextID  string         `json:"context_id"`
	Content    map[string]any `json:"content"`
	SentAt     time.Time      `json:"sent_at"`
}

// HumanMessagePayload is the schema for human.messages.* messages.
type HumanMessagePayload struct {
	InstanceID  string    `json:"instance_id"`
	MessageType string    `json:"message_type"`
	Content     string    `json:"content"`
	Options     []string  `json:"options,omitempty"`
	ContextID   string    `json:"context_id,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}
