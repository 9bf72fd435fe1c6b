package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/appforge-ai/AppForge/internal/port/messagequeue"
)

// Delegator publishes task delegations on agents.tasks.{agent_slug}.
// Fire-and-forget: the agent's result comes back later as an
// agent_result event on the events subject.
type Delegator struct {
	queue messagequeue.Queue
}

// NewDelegator wraps a queue as a messagequeue.Delegator.
func NewDelegator(queue messagequeue.Queue) *Delegator {
	return &Delegator{queue: queue}
}

// Delegate implements messagequeue.Delegator.
func (d *Delegator) Delegate(ctx context.Context, del messagequeue.Delegation) error {
	payload := messagequeue.DelegationPayload{
		InstanceID: del.InstanceID,
		Agent:      del.Agent,
		Task:       del.Task,
		ContextID:  del.ContextID,
		Content:    del.Content,
		SentAt:     time.Now().UTC(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode delegation for %s: %w", del.Agent, err)
	}
	subject := messagequeue.SubjectDelegations + "." + AgentSlug(del.Agent)
	return d.queue.Publish(ctx, subject, data)
}

// AgentSlug converts an agent display name into its subject token
// ("Dream Weaver" -> "dream-weaver").
func AgentSlug(agent string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(agent), " ", "-"))
}
