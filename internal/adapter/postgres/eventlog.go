package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appforge-ai/AppForge/internal/port/eventlog"
)

// Append implements eventlog.Log.
func (s *Store) Append(ctx context.Context, rec *eventlog.Record) error {
	content, err := json.Marshal(rec.Content)
	if err != nil {
		return fmt.Errorf("encode event content %s: %w", rec.EventID, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO processed_events
			(event_id, instance_id, kind, sender, context_id, outcome, rule, error, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.EventID, rec.InstanceID, rec.Kind, rec.Sender, rec.ContextID,
		string(rec.Outcome), rec.Rule, rec.Error, content, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append processed event %s: %w", rec.EventID, err)
	}
	return nil
}

// ListByInstance implements eventlog.Log.
func (s *Store) ListByInstance(ctx context.Context, instanceID string, limit int) ([]eventlog.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, instance_id, kind, sender, context_id, outcome, rule, error, content, created_at
		FROM processed_events
		WHERE instance_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, instanceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list processed events for %s: %w", instanceID, err)
	}
	defer rows.Close()

	var out []eventlog.Record
	for rows.Next() {
		var rec eventlog.Record
		var outcome string
		var content []byte
		if err := rows.Scan(&rec.EventID, &rec.InstanceID, &rec.Kind, &rec.Sender,
			&rec.ContextID, &outcome, &rec.Rule, &rec.Error, &content, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan processed event: %w", err)
		}
		rec.Outcome = eventlog.Outcome(outcome)
		if len(content) > 0 {
			if err := json.Unmarshal(content, &rec.Content); err != nil {
				return nil, fmt.Errorf("decode event content %s: %w", rec.EventID, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
