package boltdb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/offsync/internal/models"
)

func createTestChange(id string, synced bool) models.Change {
	return models.Change{
		ID:         id,
		EntityType: "transactions",
		Operation:  models.OperationCreate,
		Entity:     createTestEntity("tx-"+id, id),
		Timestamp:  time.UnixMilli(5000).UTC(),
		ClientID:   "client-1",
		Synced:     synced,
	}
}

func TestSaveChanges_PreservesOrder(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	// Больше 10 записей, чтобы проверить порядок ключей
	var changes []models.Change
	for i := 0; i < 12; i++ {
		changes = append(changes, createTestChange(fmt.Sprintf("c-%d", i), i%2 == 0))
	}
	require.NoError(t, store.SaveChanges(ctx, changes))

	got, err := store.LoadChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, changes, got)
}

func TestSaveChanges_ReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	require.NoError(t, store.SaveChanges(ctx, []models.Change{createTestChange("a", false), createTestChange("b", false)}))
	require.NoError(t, store.SaveChanges(ctx, []models.Change{createTestChange("c", false)}))

	got, err := store.LoadChanges(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].ID)

	require.NoError(t, store.SaveChanges(ctx, nil))
	got, err = store.LoadChanges(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaveOperations(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	ops := []*models.SyncOperation{
		{
			ID:        "op-1",
			Type:      models.OperationPush,
			Status:    models.StatusFailed,
			Error:     "connection refused",
			Changes:   []models.Change{createTestChange("a", false)},
			StartedAt: time.UnixMilli(6000).UTC(),
			Attempts:  2,
		},
		{
			ID:        "op-2",
			Type:      models.OperationPullRebase,
			Status:    models.StatusPending,
			Strategy:  models.StrategyMerge,
			StartedAt: time.UnixMilli(7000).UTC(),
		},
	}
	require.NoError(t, store.SaveOperations(ctx, ops))

	got, err := store.LoadOperations(ctx)
	require.NoError(t, err)
	assert.Equal(t, ops, got)
}

func TestAppendChangeLog_Trims(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	total := DefaultChangeLogLimit + 3
	for i := 1; i <= total; i++ {
		require.NoError(t, store.AppendChangeLog(ctx, models.ChangeLog{
			Version:   int64(i),
			ClientID:  "client-1",
			CreatedAt: time.UnixMilli(int64(i)).UTC(),
		}))
	}

	logs, err := store.ListChangeLogs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, DefaultChangeLogLimit)
	assert.Equal(t, int64(4), logs[0].Version, "oldest logs are dropped")
	assert.Equal(t, int64(total), logs[len(logs)-1].Version)
}
