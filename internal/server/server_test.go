package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/offsync/internal/adapter"
	"github.com/iudanet/offsync/internal/adapter/httpadapter"
	"github.com/iudanet/offsync/internal/config"
	"github.com/iudanet/offsync/internal/engine"
	"github.com/iudanet/offsync/internal/models"
	"github.com/iudanet/offsync/internal/netmon"
	"github.com/iudanet/offsync/internal/server/handlers"
	"github.com/iudanet/offsync/internal/server/storage/sqlite"
	"github.com/iudanet/offsync/internal/tracker"
	"github.com/iudanet/offsync/pkg/api"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *sqlite.Storage {
	t.Helper()
	store, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestServer(t *testing.T, cfg config.ServerConfig) (*httptest.Server, *sqlite.Storage) {
	t.Helper()
	store := newTestStore(t)
	srv := New(cfg, testLogger(), store, "test")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func newClient(t *testing.T, baseURL, clientID string, compress bool) *httpadapter.Client {
	t.Helper()
	client, err := httpadapter.New(adapter.Options{
		BaseURL:  baseURL,
		ClientID: clientID,
		Compress: compress,
		Logger:   testLogger(),
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func trackedChange(t *testing.T, tr *tracker.Tracker, id string, version int64, amount float64) models.Change {
	t.Helper()
	op := models.OperationCreate
	if version > 1 {
		op = models.OperationUpdate
	}
	change, err := tr.Track("transactions", op, models.Entity{
		ID:          id,
		WorkspaceID: "ws-1",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
		Version:     version,
		Fields:      map[string]any{"amount": amount},
	})
	require.NoError(t, err)
	return change
}

func TestServer_Health(t *testing.T) {
	ts, _ := newTestServer(t, config.ServerConfig{})

	resp, err := http.Get(ts.URL + RouteHealth)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health api.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)

	// адаптер проверяет доступность через HEAD
	require.NoError(t, newClient(t, ts.URL, "laptop", false).Health(context.Background()))
}

func TestServer_MethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t, config.ServerConfig{})

	req, err := http.NewRequest(http.MethodPut, ts.URL+RouteChanges, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_PushPull(t *testing.T) {
	for _, compress := range []bool{false, true} {
		t.Run(map[bool]string{false: "plain", true: "zstd"}[compress], func(t *testing.T) {
			ts, store := newTestServer(t, config.ServerConfig{})
			ctx := context.Background()

			laptop := newClient(t, ts.URL, "laptop", compress)
			phone := newClient(t, ts.URL, "phone", false)

			tr := tracker.New("laptop")
			changes := []models.Change{
				trackedChange(t, tr, "tx-1", 1, 10),
				trackedChange(t, tr, "tx-2", 1, 20),
			}

			result, err := laptop.Push(ctx, changes)
			require.NoError(t, err)
			assert.Equal(t, 2, result.Pushed)

			pulled, err := phone.Pull(ctx)
			require.NoError(t, err)
			require.Len(t, pulled, 2)
			assert.Equal(t, changes[0].ID, pulled[0].ID)
			assert.Equal(t, "laptop", pulled[0].ClientID)
			assert.InDelta(t, 10, pulled[0].Entity.Fields["amount"], 0)

			// повторная отправка не дублирует журнал
			_, err = laptop.Push(ctx, changes)
			require.NoError(t, err)
			all, err := store.ChangesSince(ctx, time.Time{})
			require.NoError(t, err)
			assert.Len(t, all, 2)

			since := time.Now()
			third := trackedChange(t, tr, "tx-3", 1, 30)
			_, err = laptop.Push(ctx, []models.Change{third})
			require.NoError(t, err)

			delta, err := phone.PullSince(ctx, since)
			require.NoError(t, err)
			require.Len(t, delta, 1)
			assert.Equal(t, third.ID, delta[0].ID)
		})
	}
}

func TestServer_ResolveConflicts(t *testing.T) {
	ts, store := newTestServer(t, config.ServerConfig{})
	ctx := context.Background()

	laptopTracker := tracker.New("laptop")
	remote := trackedChange(t, laptopTracker, "tx-1", 1, 10)
	_, err := newClient(t, ts.URL, "laptop", false).Push(ctx, []models.Change{remote})
	require.NoError(t, err)

	phoneTracker := tracker.New("phone")
	local := trackedChange(t, phoneTracker, "tx-1", 2, 99)

	phone := newClient(t, ts.URL, "phone", false)
	err = phone.ResolveConflicts(ctx, []models.Conflict{{
		ID:          "conflict-1",
		EntityType:  "transactions",
		Field:       "amount",
		Local:       local.Entity,
		Remote:      remote.Entity,
		LocalValue:  99.0,
		RemoteValue: 10.0,
		Timestamp:   time.Now(),
	}}, models.StrategyLocal)
	require.NoError(t, err)

	entity, err := store.GetEntity(ctx, "transactions", "tx-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), entity.Version)
	assert.InDelta(t, 99, entity.Fields["amount"], 0)

	pulled, err := newClient(t, ts.URL, "tablet", false).Pull(ctx)
	require.NoError(t, err)
	require.Len(t, pulled, 2)
	assert.Equal(t, handlers.ServerClientID, pulled[1].ClientID)
	assert.Equal(t, int64(3), pulled[1].Entity.Version)
}

func TestServer_ResolveConflicts_BadStrategy(t *testing.T) {
	ts, _ := newTestServer(t, config.ServerConfig{})

	err := newClient(t, ts.URL, "phone", false).ResolveConflicts(context.Background(), []models.Conflict{{
		ID:         "conflict-1",
		EntityType: "transactions",
		Field:      models.FieldVersion,
		Local:      models.Entity{ID: "tx-1", Version: 2},
		Remote:     models.Entity{ID: "tx-1", Version: 1},
	}}, models.Strategy("coin-flip"))

	var statusErr *httpadapter.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
}

func TestServer_RateLimit(t *testing.T) {
	ts, _ := newTestServer(t, config.ServerConfig{RateLimit: 1, RateWindow: time.Minute})
	client := newClient(t, ts.URL, "laptop", false)

	_, err := client.Pull(context.Background())
	require.NoError(t, err)

	_, err = client.Pull(context.Background())
	var statusErr *httpadapter.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
}

// recordingApplier collects entities written by an engine.
type recordingApplier struct {
	applied map[string]models.Entity
	mu      sync.Mutex
}

func (a *recordingApplier) Apply(ctx context.Context, change models.Change) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.applied == nil {
		a.applied = make(map[string]models.Entity)
	}
	a.applied[change.Entity.ID] = change.Entity
	return nil
}

func (a *recordingApplier) get(id string) (models.Entity, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.applied[id]
	return e, ok
}

type syncClient struct {
	engine  *engine.Engine
	tracker *tracker.Tracker
	applier *recordingApplier
}

func newSyncClient(t *testing.T, baseURL, clientID string) *syncClient {
	t.Helper()
	monitor := netmon.New(netmon.NewManualPlatform(true), netmon.Config{Logger: testLogger()})
	c := &syncClient{
		tracker: tracker.New(clientID),
		applier: &recordingApplier{},
	}
	c.engine = engine.New(newClient(t, baseURL, clientID, true), c.tracker, monitor,
		engine.WithLogger(testLogger()),
		engine.WithApplier(c.applier),
	)
	t.Cleanup(func() {
		_ = c.engine.Close()
		monitor.Stop()
	})
	return c
}

func TestServer_EngineRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t, config.ServerConfig{})
	ctx := context.Background()

	laptop := newSyncClient(t, ts.URL, "laptop")
	phone := newSyncClient(t, ts.URL, "phone")

	trackedChange(t, laptop.tracker, "tx-1", 1, 42)

	result, err := laptop.engine.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pushed)
	assert.Empty(t, laptop.tracker.GetUnsynced())

	result, err = phone.engine.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)

	entity, ok := phone.applier.get("tx-1")
	require.True(t, ok)
	assert.InDelta(t, 42, entity.Fields["amount"], 0)

	// собственные изменения не применяются повторно
	_, ok = laptop.applier.get("tx-1")
	assert.False(t, ok)
}

func TestServer_Serve_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(config.ServerConfig{ShutdownTimeout: time.Second}, testLogger(), newTestStore(t), "test")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + RouteHealth)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
