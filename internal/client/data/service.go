// Package data is the host-side repository for synchronized entities. Every
// local mutation is persisted and recorded with the change tracker; remote
// and resolved entities arrive through Apply.
package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/offsync/internal/client/storage"
	"github.com/iudanet/offsync/internal/models"
	"github.com/iudanet/offsync/internal/tracker"
	"github.com/iudanet/offsync/internal/validation"
)

// ErrAlreadyDeleted indicates a delete of an entity that is already soft deleted.
var ErrAlreadyDeleted = errors.New("entity already deleted")

// Service handles client-side entity operations
type Service struct {
	entities    storage.EntityStorage
	tracker     *tracker.Tracker
	logger      *slog.Logger
	now         func() time.Time
	workspaceID string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source stamped on entities.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithWorkspace sets the workspace assigned to new entities.
func WithWorkspace(workspaceID string) Option {
	return func(s *Service) {
		s.workspaceID = workspaceID
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a new data service
func NewService(entities storage.EntityStorage, tr *tracker.Tracker, opts ...Option) *Service {
	s := &Service{
		entities:    entities,
		tracker:     tr,
		logger:      slog.Default(),
		now:         time.Now,
		workspaceID: "default",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put creates or updates an entity. An empty id creates a new entity with a
// generated id; an existing entity has its fields replaced and its version
// bumped.
func (s *Service) Put(ctx context.Context, entityType, id string, fields map[string]any) (models.Change, error) {
	if err := validation.ValidateEntityType(entityType); err != nil {
		return models.Change{}, err
	}
	if id != "" {
		if err := validation.ValidateID("entity id", id); err != nil {
			return models.Change{}, err
		}
	}

	now := s.now()
	op := models.OperationUpdate

	existing, err := s.lookup(ctx, entityType, id)
	if err != nil {
		return models.Change{}, err
	}

	var entity models.Entity
	if existing == nil {
		// Новая запись
		op = models.OperationCreate
		if id == "" {
			id = uuid.New().String()
		}
		entity = models.Entity{
			ID:          id,
			WorkspaceID: s.workspaceID,
			CreatedAt:   now,
			Version:     1,
		}
	} else {
		entity = existing.Clone()
		entity.Version++
		entity.DeletedAt = nil
	}
	entity.UpdatedAt = now
	entity.Fields = fields

	return s.record(ctx, entityType, op, entity)
}

// Delete soft deletes an entity.
func (s *Service) Delete(ctx context.Context, entityType, id string) (models.Change, error) {
	existing, err := s.entities.GetEntity(ctx, entityType, id)
	if err != nil {
		return models.Change{}, fmt.Errorf("failed to get entity: %w", err)
	}
	if existing.IsDeleted() {
		return models.Change{}, fmt.Errorf("%w: %s/%s", ErrAlreadyDeleted, entityType, id)
	}

	now := s.now()
	entity := existing.Clone()
	entity.DeletedAt = &now
	entity.UpdatedAt = now
	entity.Version++

	return s.record(ctx, entityType, models.OperationDelete, entity)
}

// Get returns a stored entity, soft deleted ones included.
func (s *Service) Get(ctx context.Context, entityType, id string) (models.Entity, error) {
	entity, err := s.entities.GetEntity(ctx, entityType, id)
	if err != nil {
		return models.Entity{}, fmt.Errorf("failed to get entity: %w", err)
	}
	return entity, nil
}

// List returns the active entities of a type.
func (s *Service) List(ctx context.Context, entityType string) ([]models.Entity, error) {
	entities, err := s.entities.ListEntities(ctx, entityType)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	return entities, nil
}

// Apply stores a remote or resolved entity without tracking it.
func (s *Service) Apply(ctx context.Context, change models.Change) error {
	entity := change.Entity.Clone()
	if change.Operation == models.OperationDelete && entity.DeletedAt == nil {
		deletedAt := change.Timestamp
		entity.DeletedAt = &deletedAt
	}

	if err := s.entities.SaveEntity(ctx, change.EntityType, entity); err != nil {
		return fmt.Errorf("failed to apply change %s: %w", change.ID, err)
	}

	s.logger.Debug("Remote change applied",
		"change_id", change.ID,
		"entity_type", change.EntityType,
		"entity_id", entity.ID,
		"operation", change.Operation)
	return nil
}

func (s *Service) lookup(ctx context.Context, entityType, id string) (*models.Entity, error) {
	if id == "" {
		return nil, nil
	}
	entity, err := s.entities.GetEntity(ctx, entityType, id)
	if errors.Is(err, storage.ErrEntityNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	return &entity, nil
}

// record сохраняет запись и только после успешной записи регистрирует изменение
func (s *Service) record(ctx context.Context, entityType string, op models.Operation, entity models.Entity) (models.Change, error) {
	if err := s.entities.SaveEntity(ctx, entityType, entity); err != nil {
		return models.Change{}, fmt.Errorf("failed to save entity: %w", err)
	}

	change, err := s.tracker.Track(entityType, op, entity)
	if err != nil {
		return models.Change{}, fmt.Errorf("failed to track change: %w", err)
	}

	s.logger.Debug("Local change recorded",
		"change_id", change.ID,
		"entity_type", entityType,
		"entity_id", entity.ID,
		"operation", op)
	return change, nil
}
