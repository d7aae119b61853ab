package storage

import (
	"context"
	"time"
)

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// SaveLastSyncTime saves the start time of the last successful pull
	SaveLastSyncTime(ctx context.Context, t time.Time) error

	// GetLastSyncTime retrieves the time of the last successful pull
	// Returns nil if no sync has been performed yet
	GetLastSyncTime(ctx context.Context) (*time.Time, error)

	// SaveClientID stores the id stamped on local changes
	SaveClientID(ctx context.Context, clientID string) error

	// GetClientID returns the stored client id or an empty string
	GetClientID(ctx context.Context) (string, error)
}
