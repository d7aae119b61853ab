package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/offsync/internal/client/storage"
	"github.com/iudanet/offsync/internal/models"
)

// DefaultChangeLogLimit is the number of archived change logs kept on disk.
const DefaultChangeLogLimit = 50

// SaveChanges replaces the stored tracker snapshot
func (s *Storage) SaveChanges(ctx context.Context, changes []models.Change) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := replaceBucket(tx, bucketChanges)
		if err != nil {
			return err
		}
		for i, change := range changes {
			data, err := json.Marshal(change)
			if err != nil {
				return fmt.Errorf("failed to marshal change %s: %w", change.ID, err)
			}
			if err := bucket.Put(seqKey(uint64(i)), data); err != nil {
				return fmt.Errorf("failed to save change %s: %w", change.ID, err)
			}
		}
		return nil
	})
}

// LoadChanges returns the stored changes in insertion order
func (s *Storage) LoadChanges(ctx context.Context) ([]models.Change, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var changes []models.Change
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketChanges).ForEach(func(k, v []byte) error {
			var change models.Change
			if err := json.Unmarshal(v, &change); err != nil {
				return fmt.Errorf("failed to unmarshal change: %w", err)
			}
			changes = append(changes, change)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load changes: %w", err)
	}

	return changes, nil
}

// SaveOperations replaces the stored queue snapshot
func (s *Storage) SaveOperations(ctx context.Context, ops []*models.SyncOperation) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := replaceBucket(tx, bucketQueue)
		if err != nil {
			return err
		}
		for i, op := range ops {
			data, err := json.Marshal(op)
			if err != nil {
				return fmt.Errorf("failed to marshal operation %s: %w", op.ID, err)
			}
			if err := bucket.Put(seqKey(uint64(i)), data); err != nil {
				return fmt.Errorf("failed to save operation %s: %w", op.ID, err)
			}
		}
		return nil
	})
}

// LoadOperations returns the stored queue snapshot in queue order
func (s *Storage) LoadOperations(ctx context.Context) ([]*models.SyncOperation, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var ops []*models.SyncOperation
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketQueue).ForEach(func(k, v []byte) error {
			op := &models.SyncOperation{}
			if err := json.Unmarshal(v, op); err != nil {
				return fmt.Errorf("failed to unmarshal operation: %w", err)
			}
			ops = append(ops, op)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load operations: %w", err)
	}

	return ops, nil
}

// AppendChangeLog archives a change log and trims the archive to DefaultChangeLogLimit
func (s *Storage) AppendChangeLog(ctx context.Context, log models.ChangeLog) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to marshal change log: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketChangeLogs)

		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate change log key: %w", err)
		}
		if err := bucket.Put(seqKey(seq), data); err != nil {
			return fmt.Errorf("failed to save change log: %w", err)
		}

		// Удаляем самые старые логи сверх лимита
		var keys [][]byte
		c := bucket.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for i := 0; i < len(keys)-DefaultChangeLogLimit; i++ {
			if err := bucket.Delete(keys[i]); err != nil {
				return fmt.Errorf("failed to trim change logs: %w", err)
			}
		}
		return nil
	})
}

// ListChangeLogs returns archived change logs, oldest first
func (s *Storage) ListChangeLogs(ctx context.Context) ([]models.ChangeLog, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var logs []models.ChangeLog
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketChangeLogs).ForEach(func(k, v []byte) error {
			var log models.ChangeLog
			if err := json.Unmarshal(v, &log); err != nil {
				return fmt.Errorf("failed to unmarshal change log: %w", err)
			}
			logs = append(logs, log)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list change logs: %w", err)
	}

	return logs, nil
}
