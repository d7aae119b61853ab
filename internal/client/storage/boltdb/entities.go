package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/offsync/internal/client/storage"
	"github.com/iudanet/offsync/internal/models"
)

// SaveEntity stores or replaces an entity in the bucket of its type
func (s *Storage) SaveEntity(ctx context.Context, entityType string, entity models.Entity) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		// Вложенный bucket на каждый тип сущности
		bucket, err := tx.Bucket(bucketEntities).CreateBucketIfNotExists([]byte(entityType))
		if err != nil {
			return fmt.Errorf("failed to create %s bucket: %w", entityType, err)
		}
		if err := bucket.Put([]byte(entity.ID), data); err != nil {
			return fmt.Errorf("failed to save entity: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// GetEntity retrieves an entity by type and id
func (s *Storage) GetEntity(ctx context.Context, entityType, id string) (models.Entity, error) {
	if s.db == nil {
		return models.Entity{}, storage.ErrStorageClosed
	}

	var entity models.Entity
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntities).Bucket([]byte(entityType))
		if bucket == nil {
			return storage.ErrEntityNotFound
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return storage.ErrEntityNotFound
		}

		if err := json.Unmarshal(data, &entity); err != nil {
			return fmt.Errorf("failed to unmarshal entity: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Entity{}, err
	}

	return entity, nil
}

// ListEntities returns all non-deleted entities of a type
func (s *Storage) ListEntities(ctx context.Context, entityType string) ([]models.Entity, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var entities []models.Entity
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntities).Bucket([]byte(entityType))
		if bucket == nil {
			// Нет bucket - возвращаем пустой список
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var entity models.Entity
			if err := json.Unmarshal(v, &entity); err != nil {
				return fmt.Errorf("failed to unmarshal entity: %w", err)
			}
			if !entity.IsDeleted() {
				entities = append(entities, entity)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	return entities, nil
}

// EntityTypes returns the names of the per-type buckets
func (s *Storage) EntityTypes(ctx context.Context) ([]string, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var types []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntities).ForEachBucket(func(k []byte) error {
			types = append(types, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list entity types: %w", err)
	}

	return types, nil
}
