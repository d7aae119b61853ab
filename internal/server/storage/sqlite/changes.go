package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/offsync/internal/models"
	"github.com/iudanet/offsync/internal/server/storage"
)

// SaveChanges implements storage.ChangeStorage. All changes are stored in
// one transaction.
func (s *Storage) SaveChanges(ctx context.Context, changes []models.Change, receivedAt time.Time) (accepted int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, change := range changes {
		inserted, err := insertChange(ctx, tx, change, receivedAt)
		if err != nil {
			return 0, err
		}
		if !inserted {
			continue
		}
		accepted++

		if err := upsertEntity(ctx, tx, change.EntityType, change.Entity); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit changes: %w", err)
	}
	return accepted, nil
}

// insertChange добавляет изменение, повтор по id игнорируется
func insertChange(ctx context.Context, tx *sql.Tx, change models.Change, receivedAt time.Time) (bool, error) {
	data, err := json.Marshal(change.Entity)
	if err != nil {
		return false, fmt.Errorf("failed to marshal entity: %w", err)
	}

	query := `
		INSERT INTO changes (
			id, entity_type, entity_id, operation, client_id,
			timestamp, received_at, entity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	result, err := tx.ExecContext(ctx, query,
		change.ID,
		change.EntityType,
		change.EntityID(),
		string(change.Operation),
		change.ClientID,
		change.Timestamp.UnixNano(),
		receivedAt.UnixNano(),
		data,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert change %s: %w", change.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// upsertEntity заменяет состояние записи, если версия не старее сохраненной
func upsertEntity(ctx context.Context, tx *sql.Tx, entityType string, entity models.Entity) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	query := `
		INSERT INTO entities (entity_type, id, version, deleted, updated_at, data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_type, id) DO UPDATE SET
			version = excluded.version,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at,
			data = excluded.data
		WHERE excluded.version >= entities.version
	`

	_, err = tx.ExecContext(ctx, query,
		entityType,
		entity.ID,
		entity.Version,
		boolToInt(entity.IsDeleted()),
		entity.UpdatedAt.UnixNano(),
		data,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert entity %s: %w", entity.ID, err)
	}
	return nil
}

// ChangesSince implements storage.ChangeStorage.
func (s *Storage) ChangesSince(ctx context.Context, since time.Time) (changes []models.Change, err error) {
	query := `
		SELECT id, entity_type, operation, client_id, timestamp, entity
		FROM changes
		WHERE received_at > ?
		ORDER BY seq ASC
	`

	var after int64 = -1
	if !since.IsZero() {
		after = since.UnixNano()
	}

	rows, err := s.db.QueryContext(ctx, query, after)
	if err != nil {
		return nil, fmt.Errorf("failed to query changes: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return scanChanges(rows)
}

// GetEntity implements storage.ChangeStorage.
func (s *Storage) GetEntity(ctx context.Context, entityType, id string) (models.Entity, error) {
	query := `SELECT data FROM entities WHERE entity_type = ? AND id = ?`

	var data []byte
	err := s.db.QueryRowContext(ctx, query, entityType, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Entity{}, storage.ErrEntityNotFound
		}
		return models.Entity{}, fmt.Errorf("failed to get entity: %w", err)
	}

	var entity models.Entity
	if err := json.Unmarshal(data, &entity); err != nil {
		return models.Entity{}, fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return entity, nil
}

func scanChanges(rows *sql.Rows) ([]models.Change, error) {
	changes := make([]models.Change, 0)

	for rows.Next() {
		var (
			change    models.Change
			operation string
			timestamp int64
			data      []byte
		)
		if err := rows.Scan(&change.ID, &change.EntityType, &operation, &change.ClientID, &timestamp, &data); err != nil {
			return nil, fmt.Errorf("failed to scan change: %w", err)
		}
		if err := json.Unmarshal(data, &change.Entity); err != nil {
			return nil, fmt.Errorf("failed to unmarshal change %s: %w", change.ID, err)
		}
		change.Operation = models.Operation(operation)
		change.Timestamp = time.Unix(0, timestamp).UTC()
		changes = append(changes, change)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return changes, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
