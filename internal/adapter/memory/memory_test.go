package memory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/offsync/internal/adapter"
	"github.com/iudanet/offsync/internal/models"
)

func testChange(id, entityID string, version int64, name string) models.Change {
	return models.Change{
		ID:         id,
		EntityType: "transactions",
		Operation:  models.OperationUpdate,
		ClientID:   "client-1",
		Timestamp:  time.UnixMilli(100),
		Entity: models.Entity{
			ID:        entityID,
			UpdatedAt: time.UnixMilli(100 * version),
			Version:   version,
			Fields:    map[string]any{"name": name},
		},
	}
}

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	return c.now
}

func newTestAdapter(clock *stepClock) *Adapter {
	return New(WithClock(clock.Now), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestAdapter_PushIsIdempotent(t *testing.T) {
	a := newTestAdapter(&stepClock{now: time.UnixMilli(1000)})
	ctx := context.Background()

	var synced int
	a.On(adapter.EventSynced, func(adapter.Event) { synced++ })

	changes := []models.Change{testChange("c-1", "tx-1", 1, "A"), testChange("c-2", "tx-1", 2, "B")}
	result, err := a.Push(ctx, changes)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Pushed)

	_, err = a.Push(ctx, changes)
	require.NoError(t, err)

	assert.Equal(t, 2, a.Len(), "duplicates are not stored twice")
	assert.Equal(t, 2, synced)

	entity, ok := a.Entity("tx-1")
	require.True(t, ok)
	assert.Equal(t, "B", entity.Fields["name"])
}

func TestAdapter_PullSince(t *testing.T) {
	clock := &stepClock{now: time.UnixMilli(1000)}
	a := newTestAdapter(clock)
	ctx := context.Background()

	a.Seed(testChange("c-1", "tx-1", 1, "A"))
	clock.now = time.UnixMilli(2000)
	a.Seed(testChange("c-2", "tx-2", 1, "B"))

	all, err := a.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c-1", "c-2"}, models.ChangeIDs(all))

	delta, err := a.PullSince(ctx, time.UnixMilli(1000))
	require.NoError(t, err)
	assert.Equal(t, []string{"c-2"}, models.ChangeIDs(delta))

	// Изменения возвращаются копиями
	all[0].Entity.Fields["name"] = "mutated"
	again, _ := a.Pull(ctx)
	assert.Equal(t, "A", again[0].Entity.Fields["name"])
}

func TestAdapter_FailureInjection(t *testing.T) {
	a := newTestAdapter(&stepClock{now: time.UnixMilli(1000)})
	ctx := context.Background()
	boom := errors.New("boom")

	var failures []error
	a.On(adapter.EventError, func(ev adapter.Event) { failures = append(failures, ev.Err) })

	a.SetPushError(boom)
	_, err := a.Push(ctx, []models.Change{testChange("c-1", "tx-1", 1, "A")})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, a.Len())

	a.SetPullError(boom)
	_, err = a.Pull(ctx)
	assert.ErrorIs(t, err, boom)

	a.SetResolveError(boom)
	err = a.ResolveConflicts(ctx, []models.Conflict{{Local: testChange("c-1", "tx-1", 1, "A").Entity}}, models.StrategyRemote)
	assert.ErrorIs(t, err, boom)

	assert.Len(t, failures, 2)

	a.SetPushError(nil)
	_, err = a.Push(ctx, []models.Change{testChange("c-1", "tx-1", 1, "A")})
	assert.NoError(t, err)
}

func TestAdapter_ResolveConflicts(t *testing.T) {
	a := newTestAdapter(&stepClock{now: time.UnixMilli(5000)})
	ctx := context.Background()

	local := testChange("c-1", "tx-1", 1, "local").Entity
	remote := testChange("c-2", "tx-1", 2, "remote").Entity
	conflicts := []models.Conflict{{EntityType: "transactions", Field: "name", Local: local, Remote: remote}}

	require.NoError(t, a.ResolveConflicts(ctx, conflicts, models.StrategyLocal))

	changes, err := a.Pull(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, ServerClientID, changes[0].ClientID)
	assert.Equal(t, "transactions", changes[0].EntityType)
	assert.Equal(t, "local", changes[0].Entity.Fields["name"])

	assert.Error(t, a.ResolveConflicts(ctx, nil, models.StrategyLocal))
}

func TestAdapter_Close(t *testing.T) {
	a := newTestAdapter(&stepClock{now: time.UnixMilli(1000)})

	disconnected := false
	a.On(adapter.EventDisconnected, func(adapter.Event) { disconnected = true })

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.True(t, disconnected)

	_, err := a.Pull(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFactory(t *testing.T) {
	a, err := Factory(adapter.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)

	_, ok := a.(adapter.DeltaPuller)
	assert.True(t, ok, "memory adapter supports delta pull")
}
