package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/appforge-ai/AppForge/internal/domain/state"
	"github.com/appforge-ai/AppForge/internal/port/statestore"
)

// Store implements the statestore, eventlog and API-key persistence
// over one shared pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by the given pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create implements statestore.Store.
func (s *Store) Create(ctx context.Context, id string, doc state.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode state for %s: %w", id, err)
	}
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO instances (id, state, created_at, updated_at)
		VALUES ($1, $2, $3, $3)`,
		id, raw, now,
	)
	if err != nil {
		return fmt.Errorf("create instance %s: %w", id, err)
	}
	return nil
}

// Get implements statestore.Store.
func (s *Store) Get(ctx context.Context, id string) (*statestore.Instance, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, state, created_at, updated_at
		FROM instances WHERE id = $1`, id)

	var inst statestore.Instance
	var raw []byte
	if err := row.Scan(&inst.ID, &raw, &inst.CreatedAt, &inst.UpdatedAt); err != nil {
		return nil, notFoundWrap(err, "get instance %s", id)
	}
	if err := json.Unmarshal(raw, &inst.State); err != nil {
		return nil, fmt.Errorf("decode state for %s: %w", id, err)
	}
	return &inst, nil
}

// Save implements statestore.Store.
func (s *Store) Save(ctx context.Context, id string, doc state.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode state for %s: %w", id, err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE instances SET state = $2, updated_at = $3 WHERE id = $1`,
		id, raw, time.Now().UTC(),
	)
	return execExpectOne(tag, err, "save instance %s", id)
}

// List implements statestore.Store.
func (s *Store) List(ctx context.Context) ([]statestore.Instance, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, state, created_at, updated_at
		FROM instances ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()

	var out []statestore.Instance
	for rows.Next() {
		var inst statestore.Instance
		var raw []byte
		if err := rows.Scan(&inst.ID, &raw, &inst.CreatedAt, &inst.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		if err := json.Unmarshal(raw, &inst.State); err != nil {
			return nil, fmt.Errorf("decode state for %s: %w", inst.ID, err)
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}
