package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/offsync/internal/client/storage"
)

const (
	keyLastSyncTime = "last_sync_time"
	keyClientID     = "client_id"
)

// SaveLastSyncTime saves the start time of the last successful pull
func (s *Storage) SaveLastSyncTime(ctx context.Context, t time.Time) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		// Храним наносекунды UTC, big-endian
		value := make([]byte, 8)
		binary.BigEndian.PutUint64(value, uint64(t.UnixNano()))

		if err := tx.Bucket(bucketMetadata).Put([]byte(keyLastSyncTime), value); err != nil {
			return fmt.Errorf("failed to save last sync time: %w", err)
		}
		return nil
	})
}

// GetLastSyncTime retrieves the time of the last successful pull
// Returns nil if no sync has been performed yet
func (s *Storage) GetLastSyncTime(ctx context.Context) (*time.Time, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var result *time.Time
	err := s.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(bucketMetadata).Get([]byte(keyLastSyncTime))
		if value == nil {
			// Первая синхронизация
			return nil
		}
		t := time.Unix(0, int64(binary.BigEndian.Uint64(value))).UTC()
		result = &t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get last sync time: %w", err)
	}

	return result, nil
}

// SaveClientID stores the client id
func (s *Storage) SaveClientID(ctx context.Context, clientID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketMetadata).Put([]byte(keyClientID), []byte(clientID)); err != nil {
			return fmt.Errorf("failed to save client id: %w", err)
		}
		return nil
	})
}

// GetClientID returns the stored client id, empty when none was saved
func (s *Storage) GetClientID(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", storage.ErrStorageClosed
	}

	var clientID string
	err := s.db.View(func(tx *bbolt.Tx) error {
		clientID = string(tx.Bucket(bucketMetadata).Get([]byte(keyClientID)))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to get client id: %w", err)
	}

	return clientID, nil
}
