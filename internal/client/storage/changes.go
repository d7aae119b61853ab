package storage

import (
	"context"

	"github.com/iudanet/offsync/internal/models"
)

// ChangeStorage persists the tracker contents between runs.
type ChangeStorage interface {
	// SaveChanges replaces the stored changes, preserving their order
	SaveChanges(ctx context.Context, changes []models.Change) error

	// LoadChanges returns the stored changes in the order they were saved
	LoadChanges(ctx context.Context) ([]models.Change, error)
}

// QueueStorage persists the operation queue snapshot.
type QueueStorage interface {
	SaveOperations(ctx context.Context, ops []*models.SyncOperation) error
	LoadOperations(ctx context.Context) ([]*models.SyncOperation, error)
}

// ChangeLogStorage archives exported change logs.
type ChangeLogStorage interface {
	// AppendChangeLog stores a log, dropping the oldest ones beyond the archive limit
	AppendChangeLog(ctx context.Context, log models.ChangeLog) error

	// ListChangeLogs returns archived logs, oldest first
	ListChangeLogs(ctx context.Context) ([]models.ChangeLog, error)
}
