package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/offsync/internal/adapter"
	"github.com/iudanet/offsync/internal/models"
	"github.com/iudanet/offsync/internal/retry"
	"github.com/iudanet/offsync/internal/zstdcompress"
	"github.com/iudanet/offsync/pkg/api"
)

func testOptions(baseURL string) adapter.Options {
	return adapter.Options{
		BaseURL:  baseURL,
		ClientID: "client-1",
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func testChange() models.Change {
	return models.Change{
		ID:         "client-1-100-abc",
		EntityType: "transactions",
		Operation:  models.OperationCreate,
		ClientID:   "client-1",
		Timestamp:  time.UnixMilli(100).UTC(),
		Entity: models.Entity{
			ID:          "tx-1",
			WorkspaceID: "ws-1",
			CreatedAt:   time.UnixMilli(100).UTC(),
			UpdatedAt:   time.UnixMilli(100).UTC(),
			Version:     1,
			Fields:      map[string]any{"name": "coffee"},
		},
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNew(t *testing.T) {
	c, err := New(testOptions("http://localhost:8080"))
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)

	_, err = New(adapter.Options{})
	assert.ErrorIs(t, err, ErrBaseURLRequired)

	_, err = New(adapter.Options{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestClient_Push(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, PathChanges, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "client-1", r.Header.Get("X-Client-ID"))

		var req api.PushRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "client-1", req.ClientID)
		require.Len(t, req.Changes, 1)
		assert.Equal(t, "create", req.Changes[0].Operation)
		assert.Equal(t, "coffee", req.Changes[0].Entity.Fields["name"])

		writeJSON(t, w, http.StatusOK, api.PushResponse{Accepted: 1})
	}))
	defer server.Close()

	c, err := New(testOptions(server.URL))
	require.NoError(t, err)

	var events []adapter.EventType
	c.On(adapter.EventConnected, func(ev adapter.Event) { events = append(events, ev.Type) })
	c.On(adapter.EventSynced, func(ev adapter.Event) { events = append(events, ev.Type) })

	result, err := c.Push(context.Background(), []models.Change{testChange()})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Pushed)
	assert.Equal(t, []adapter.EventType{adapter.EventConnected, adapter.EventSynced}, events)
}

func TestClient_PushCompressed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, zstdcompress.Encoding, r.Header.Get("Content-Encoding"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		body, err := zstdcompress.Decompress(raw)
		require.NoError(t, err)

		var req api.PushRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Len(t, req.Changes, 1)

		writeJSON(t, w, http.StatusOK, api.PushResponse{Accepted: 1})
	}))
	defer server.Close()

	opts := testOptions(server.URL)
	opts.Compress = true
	c, err := New(opts)
	require.NoError(t, err)

	_, err = c.Push(context.Background(), []models.Change{testChange()})
	require.NoError(t, err)
}

func TestClient_PullSince(t *testing.T) {
	since := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		if r.URL.Query().Has("since") {
			assert.Equal(t, since.Format(time.RFC3339Nano), r.URL.Query().Get("since"))
			writeJSON(t, w, http.StatusOK, api.PullResponse{})
			return
		}
		writeJSON(t, w, http.StatusOK, api.PullResponse{Changes: models.ChangesToAPI([]models.Change{testChange()})})
	}))
	defer server.Close()

	c, err := New(testOptions(server.URL))
	require.NoError(t, err)

	all, err := c.Pull(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, testChange().ID, all[0].ID)
	assert.Equal(t, models.OperationCreate, all[0].Operation)
	assert.Equal(t, "coffee", all[0].Entity.Fields["name"])

	delta, err := c.PullSince(context.Background(), since)
	require.NoError(t, err)
	assert.Empty(t, delta)
}

func TestClient_PullInvalidChange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, api.PullResponse{Changes: []api.Change{{ID: "c-1", Operation: "upsert"}}})
	}))
	defer server.Close()

	c, err := New(testOptions(server.URL))
	require.NoError(t, err)

	_, err = c.Pull(context.Background())
	assert.ErrorContains(t, err, "invalid pull response")
}

func TestClient_ResolveConflicts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathResolve, r.URL.Path)

		var req api.ResolveRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "merge", req.Strategy)
		require.Len(t, req.Conflicts, 1)
		assert.Equal(t, "name", req.Conflicts[0].Field)

		writeJSON(t, w, http.StatusOK, api.ResolveResponse{Resolved: []api.Entity{req.Conflicts[0].Remote}})
	}))
	defer server.Close()

	c, err := New(testOptions(server.URL))
	require.NoError(t, err)

	entity := testChange().Entity
	err = c.ResolveConflicts(context.Background(), []models.Conflict{{Field: "name", Local: entity, Remote: entity}}, models.StrategyMerge)
	require.NoError(t, err)
}

func TestClient_StatusErrors(t *testing.T) {
	tests := []struct {
		body          any
		name          string
		wantMessage   string
		status        int
		wantRetryable bool
	}{
		{name: "json error", status: http.StatusBadRequest, body: api.ErrorResponse{Error: "invalid change"}, wantMessage: "invalid change"},
		{name: "plain text", status: http.StatusServiceUnavailable, body: "maintenance", wantMessage: `"maintenance"`, wantRetryable: true},
		{name: "rate limited", status: http.StatusTooManyRequests, body: api.ErrorResponse{Error: "slow down"}, wantMessage: "slow down", wantRetryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(t, w, tt.status, tt.body)
			}))
			defer server.Close()

			c, err := New(testOptions(server.URL))
			require.NoError(t, err)

			var errorEvents int
			c.On(adapter.EventError, func(adapter.Event) { errorEvents++ })

			_, err = c.Pull(context.Background())
			require.Error(t, err)

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.status, statusErr.StatusCode())
			assert.Equal(t, tt.wantMessage, statusErr.Message)
			assert.Equal(t, tt.wantRetryable, retry.IsRetryable(err))
			assert.Equal(t, 1, errorEvents)
		})
	}
}

func TestClient_ConnectionEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	c, err := New(testOptions(server.URL))
	require.NoError(t, err)

	var events []adapter.EventType
	record := func(ev adapter.Event) { events = append(events, ev.Type) }
	c.On(adapter.EventConnected, record)
	c.On(adapter.EventDisconnected, record)

	require.NoError(t, c.Health(context.Background()))
	require.NoError(t, c.Health(context.Background()))

	server.Close()
	err = c.Health(context.Background())
	require.Error(t, err)
	assert.True(t, retry.IsRetryable(err), "transport failures are retryable")

	assert.Equal(t, []adapter.EventType{adapter.EventConnected, adapter.EventDisconnected}, events)
}
