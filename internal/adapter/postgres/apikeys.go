package postgres

import (
	"context"
	"fmt"
	"time"
)

// APIKey is one issued API key. Secret carries the bcrypt hash, never
// the key itself; lookup goes through the short public prefix.
type APIKey struct {
	ID        string
	Name      string
	Prefix    string
	Hash      []byte
	CreatedAt time.Time
}

// CreateAPIKey persists a newly minted key.
func (s *Store) CreateAPIKey(ctx context.Context, key *APIKey) error {
	key.CreatedAt = time.Now().UTC()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO api_keys (id, name, prefix, key_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		key.ID, key.Name, key.Prefix, key.Hash, key.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

// GetAPIKeyByPrefix loads the key record whose public prefix matches.
func (s *Store) GetAPIKeyByPrefix(ctx context.Context, prefix string) (*APIKey, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, prefix, key_hash, created_at
		FROM api_keys WHERE prefix = $1`, prefix)

	var key APIKey
	if err := row.Scan(&key.ID, &key.Name, &key.Prefix, &key.Hash, &key.CreatedAt); err != nil {
		return nil, notFoundWrap(err, "get api key %s", prefix)
	}
	return &key, nil
}

// ListAPIKeys returns all issued keys, newest first.
func (s *Store) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, prefix, key_hash, created_at
		FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var key APIKey
		if err := rows.Scan(&key.ID, &key.Name, &key.Prefix, &key.Hash, &key.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// DeleteAPIKey revokes a key by id.
func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete api key %s", id)
}
