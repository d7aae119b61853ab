// Package storage declares the persistence contract of the reference backend.
package storage

import (
	"context"
	"time"

	"github.com/iudanet/offsync/internal/models"
)

// ChangeStorage is the server change log plus the latest known state of
// every entity.
type ChangeStorage interface {
	// SaveChanges appends changes stamped with receivedAt. Changes whose id is
	// already stored are skipped; the number of newly stored changes is returned.
	// An entity's latest state is replaced unless the stored version is newer.
	SaveChanges(ctx context.Context, changes []models.Change, receivedAt time.Time) (int, error)

	// ChangesSince returns changes received strictly after since in receive
	// order. A zero since returns the whole log.
	ChangesSince(ctx context.Context, since time.Time) ([]models.Change, error)

	// GetEntity returns the latest state of an entity, including soft
	// deleted ones. Returns ErrEntityNotFound when unknown.
	GetEntity(ctx context.Context, entityType, id string) (models.Entity, error)

	// Ping checks that the storage is reachable.
	Ping(ctx context.Context) error
}
