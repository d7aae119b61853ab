// Package adapter defines the boundary between the sync engine and a remote
// backend.
package adapter

import (
	"context"
	"time"

	"github.com/iudanet/offsync/internal/models"
)

//go:generate moq -out adapter_mock.go . SyncAdapter

// SyncAdapter is the only dependency of the engine on a concrete backend.
type SyncAdapter interface {
	// Push sends local changes. Backends must upsert idempotently by change id.
	Push(ctx context.Context, changes []models.Change) (*models.SyncResult, error)

	// Pull returns every remote change.
	Pull(ctx context.Context) ([]models.Change, error)

	// ResolveConflicts asks the backend to settle conflicts with strategy.
	ResolveConflicts(ctx context.Context, conflicts []models.Conflict, strategy models.Strategy) error

	// On registers an event handler and returns a function removing it.
	On(eventType EventType, handler Handler) (cancel func())

	// Close releases backend resources.
	Close() error
}

// DeltaPuller is implemented by adapters able to return only the changes
// received after a point in time.
type DeltaPuller interface {
	PullSince(ctx context.Context, since time.Time) ([]models.Change, error)
}
