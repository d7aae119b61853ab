package storage

import (
	"context"

	"github.com/iudanet/offsync/internal/models"
)

// EntityStorage stores the host's copy of synchronized entities, grouped by
// entity type.
type EntityStorage interface {
	// SaveEntity stores or replaces an entity
	SaveEntity(ctx context.Context, entityType string, entity models.Entity) error

	// GetEntity retrieves an entity, soft deleted ones included.
	// Returns ErrEntityNotFound if entity doesn't exist
	GetEntity(ctx context.Context, entityType, id string) (models.Entity, error)

	// ListEntities returns the non-deleted entities of a type
	ListEntities(ctx context.Context, entityType string) ([]models.Entity, error)

	// EntityTypes returns every entity type with at least one stored entity
	EntityTypes(ctx context.Context) ([]string, error)
}
