// Package statestore defines the port interface for persisting
// per-instance project-state documents.
package statestore

import (
	"context"
	"time"

	"github.com/appforge-ai/AppForge/internal/domain/state"
)

// Instance is one running workflow instance and its state document.
type Instance struct {
	ID        string         `json:"id"`
	State     state.Document `json:"state"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Store is the port interface for loading and saving instance state.
type Store interface {
	// Create persists a fresh instance. It fails if the id exists.
	Create(ctx context.Context, id string, doc state.Document) error

	// Get loads an instance, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*Instance, error)

	// Save replaces the instance's state document.
	Save(ctx context.Context, id string, doc state.Document) error

	// List returns all known instances, newest first.
	List(ctx context.Context) ([]Instance, error)
}
