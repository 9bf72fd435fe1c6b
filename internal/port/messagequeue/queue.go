// Package messagequeue defines the message queue port (interface).
package messagequeue

import "context"

// Handler processes a message received from the queue.
// The context carries request-scoped values such as the request ID.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	// Pending messages are processed; no new messages are accepted.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subject constants for NATS subjects used by AppForge.
const (
	// SubjectEvents carries inbound workflow events.
	// workflow.events.{instance_id} — start, agent_result, human_input,
	// status_update. Agents report results by publishing here too.
	SubjectEvents = "workflow.events"

	// SubjectDelegations carries outbound task delegations.
	// agents.tasks.{agent_slug} — fire-and-forget; the agent replies
	// later with an agent_result event on SubjectEvents.
	SubjectDelegations = "agents.tasks"

	// SubjectHuman carries outbound human-facing messages.
	// human.messages.{instance_id}.
	SubjectHuman = "human.messages"
)

// Delegation is an outbound task request for a named agent.
type Delegation struct {
	InstanceID string         `json:"instance_id"`
	Agent      string         `json:"agent"`
	Task       string         `json:"task"`
	ContextID  string         `json:"context_id"`
	Content    map[string]any `json:"content"`
}

// Delegator is the outbound port the engine uses to dispatch
// delegations. Implementations must not block on the agent's reply.
type Delegator interface {
	Delegate(ctx context.Context, d Delegation) error
}
