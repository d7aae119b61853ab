package boltdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndGetLastSyncTime(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	// Изначально время не сохранено
	got, err := store.GetLastSyncTime(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	expected := time.Date(2026, 3, 14, 15, 9, 26, 535897932, time.UTC)
	require.NoError(t, store.SaveLastSyncTime(ctx, expected))

	got, err = store.GetLastSyncTime(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, expected.Equal(*got))

	// Перезаписываем
	later := expected.Add(time.Hour)
	require.NoError(t, store.SaveLastSyncTime(ctx, later))
	got, err = store.GetLastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, later.Equal(*got))
}

func TestClientID(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	clientID, err := store.GetClientID(ctx)
	require.NoError(t, err)
	assert.Empty(t, clientID)

	require.NoError(t, store.SaveClientID(ctx, "client-42"))
	clientID, err = store.GetClientID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "client-42", clientID)
}
