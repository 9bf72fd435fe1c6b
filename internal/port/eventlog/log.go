// Package eventlog defines the port interface for the processed-event
// archive. Every event the engine sees is recorded with its outcome,
// including the ones no rule matched.
package eventlog

import (
	"context"
	"time"
)

// Outcome classifies what dispatch did with an event.
type Outcome string

const (
	// OutcomeMatched means a rule fired; Rule carries its description.
	OutcomeMatched Outcome = "matched"
	// OutcomeDropped means no rule matched; the instance is unaffected.
	OutcomeDropped Outcome = "dropped"
	// OutcomeLate means the instance was already terminal.
	OutcomeLate Outcome = "late"
	// OutcomeError means the turn failed (depth exceeded, store failure).
	OutcomeError Outcome = "error"
)

// Record is one archived event with its dispatch outcome.
type Record struct {
	EventID    string         `json:"event_id"`
	InstanceID string         `json:"instance_id"`
	Kind       string         `json:"kind"`
	Sender     string         `json:"sender,omitempty"`
	ContextID  string         `json:"context_id,omitempty"`
	Outcome    Outcome        `json:"outcome"`
	Rule       string         `json:"rule,omitempty"`
	Error      string         `json:"error,omitempty"`
	Content    map[string]any `json:"content,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Log is the port interface for the archive.
type Log interface {
	// Append records a processed event.
	Append(ctx context.Context, rec *Record) error

	// ListByInstance returns the newest records for one instance.
	ListByInstance(ctx context.Context, instanceID string, limit int) ([]Record, error)
}
