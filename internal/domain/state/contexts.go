package state

import "time"

// ContextRecord is the delegation record kept for every open context id.
// Retry rules re-send OriginalContent verbatim; escalation rules read
// Agent and Task for the human-facing report. Records live inside the
// state document (under current_task_contexts) so the registry is
// persisted and restored with the instance.
type ContextRecord struct {
	Agent           string         `json:"agent"`
	Task            string         `json:"task"`
	OriginalContent map[string]any `json:"original_content"`
	CreatedAt       time.Time      `json:"created_at"`
}

// PutContext records a delegation under its context id.
func (d Document) PutContext(contextID string, rec ContextRecord) {
	contexts := d.contexts()
	contexts[contextID] = map[string]any{
		"agent":            rec.Agent,
		"task":             rec.Task,
		"original_content": rec.OriginalContent,
		"created_at":       rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Context returns the delegation record for a context id.
func (d Document) Context(contextID string) (ContextRecord, bool) {
	contexts := d.contexts()
	raw, ok := contexts[contextID].(map[string]any)
	if !ok {
		return ContextRecord{}, false
	}
	rec := ContextRecord{}
	rec.Agent, _ = raw["agent"].(string)
	rec.Task, _ = raw["task"].(string)
	rec.OriginalContent, _ = raw["original_content"].(map[string]any)
	if ts, isStr := raw["created_at"].(string); isStr {
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	}
	return rec, ok
}

// PruneContext removes a context record once its delegation reached a
// success or terminal outcome.
func (d Document) PruneContext(contextID string) {
	delete(d.contexts(), contextID)
}

// OpenContexts returns the ids of all unresolved delegations.
func (d Document) OpenContexts() []string {
	contexts := d.contexts()
	ids := make([]string, 0, len(contexts))
	for id := range contexts {
		ids = append(ids, id)
	}
	return ids
}

// contexts returns the mutable registry map, creating it if absent.
func (d Document) contexts() map[string]any {
	if m, ok := d[FieldTaskContexts].(map[string]any); ok {
		return m
	}
	m := make(map[string]any)
	d[FieldTaskContexts] = m
	return m
}
