// Package checkpoint tracks approval gates across pipeline stages: a keyed
// registry of checkpoint records and the orchestrator that drives one
// checkpoint's lifecycle from pending to a terminal approved/rejected state.
package checkpoint

import (
	"context"
	"errors"

	"github.com/joescharf/cq/internal/models"
)

// Sentinel errors for caller misuse of the checkpoint API. These propagate
// immediately and are never retried.
var (
	ErrNotFound            = errors.New("checkpoint not found")
	ErrDuplicateCheckpoint = errors.New("checkpoint already exists")
	ErrFinalized           = errors.New("checkpoint already finalized")
)

// Store defines the persistence interface for the checkpoint registry.
type Store interface {
	// CreateCheckpoint inserts a new pending record. Fails with
	// ErrDuplicateCheckpoint if the id is already registered.
	CreateCheckpoint(ctx context.Context, cp *models.Checkpoint) error

	// GetCheckpoint returns the record for id, or ErrNotFound.
	GetCheckpoint(ctx context.Context, id string) (*models.Checkpoint, error)

	// ListCheckpoints returns all checkpoints, optionally filtered by stage,
	// newest first.
	ListCheckpoints(ctx context.Context, stage string) ([]*models.Checkpoint, error)

	// FinalizeCheckpoint records the single pending -> terminal transition.
	// Fails with ErrFinalized if the record already left pending, or
	// ErrNotFound if the id is unknown.
	FinalizeCheckpoint(ctx context.Context, cp *models.Checkpoint) error

	// RecordReport indexes a persisted report file for later lookup.
	RecordReport(ctx context.Context, id, artifactType, artifactID, path string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
