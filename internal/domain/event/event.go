// Package event defines the workflow Event entity.
package event

import (
	"time"

	"github.com/appforge-ai/AppForge/internal/domain/state"
)

// Kind identifies the class of inbound workflow event.
type Kind string

const (
	// KindStart kicks off a new workflow instance. Content carries user_idea.
	KindStart Kind = "start"
	// KindAgentResult carries an agent's task outcome (result or status_update).
	KindAgentResult Kind = "agent_result"
	// KindHumanInput carries a human response correlated by context id.
	KindHumanInput Kind = "human_input"
	// KindStatusUpdate carries an out-of-band agent status report,
	// typically a generic failure caught by the escalation rules.
	KindStatusUpdate Kind = "status_update"
)

// Event is a single immutable occurrence dispatched against the workflow
// definition. Events are never mutated after construction; rules read
// them through dotted paths (sender, context_id, response, content.*).
type Event struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"project_id"`
	Kind      Kind           `json:"kind"`
	Sender    string         `json:"sender,omitempty"`
	ContextID string         `json:"context_id,omitempty"`
	Response  string         `json:"response,omitempty"`
	Content   map[string]any `json:"content,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Field resolves a dotted path against the event envelope, including
// into the content document. Missing paths return ok=false.
func (e *Event) Field(path string) (any, bool) {
	return state.Lookup(e.Document(), path)
}

// Document returns the event as a nested map for path resolution and
// template evaluation. The returned map shares the content document;
// callers must not mutate it.
func (e *Event) Document() map[string]any {
	return map[string]any{
		"kind":       string(e.Kind),
		"sender":     e.Sender,
		"context_id": e.ContextID,
		"response":   e.Response,
		"content":    e.Content,
	}
}
