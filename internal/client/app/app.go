// Package app wires the client side: local store, change tracker, operation
// queue, connectivity monitor, remote adapter and sync engine.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/iudanet/offsync/internal/adapter"
	"github.com/iudanet/offsync/internal/adapter/httpadapter"
	"github.com/iudanet/offsync/internal/adapter/providers"
	"github.com/iudanet/offsync/internal/client/data"
	"github.com/iudanet/offsync/internal/client/storage/boltdb"
	"github.com/iudanet/offsync/internal/config"
	"github.com/iudanet/offsync/internal/engine"
	"github.com/iudanet/offsync/internal/models"
	"github.com/iudanet/offsync/internal/netmon"
	"github.com/iudanet/offsync/internal/queue"
	"github.com/iudanet/offsync/internal/retry"
	"github.com/iudanet/offsync/internal/tracker"
)

// App holds the wired client components.
type App struct {
	Adapter  adapter.SyncAdapter
	Storage  *boltdb.Storage
	Tracker  *tracker.Tracker
	Queue    *queue.Queue
	Data     *data.Service
	Engine   *engine.Engine
	Monitor  *netmon.Monitor
	Platform *netmon.ManualPlatform
	Retry    *retry.Strategy
	logger   *slog.Logger
}

// Open restores persisted state from the local store and builds the engine.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	store, err := boltdb.New(ctx, cfg.Client.DBPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, store.Close())
		}
	}()

	clientID, err := resolveClientID(ctx, store, cfg.Client.ClientID)
	if err != nil {
		return nil, err
	}

	changes, err := store.LoadChanges(ctx)
	if err != nil {
		return nil, err
	}
	tr := tracker.New(clientID)
	tr.Restore(changes)

	ops, err := store.LoadOperations(ctx)
	if err != nil {
		return nil, err
	}
	q := queue.New(cfg.Client.QueueSize)
	q.Restore(ops)

	lastSync, err := store.GetLastSyncTime(ctx)
	if err != nil {
		return nil, err
	}

	strategy, err := models.ParseStrategy(cfg.Client.Strategy)
	if err != nil {
		return nil, err
	}

	registry := providers.Default()
	kind, err := registry.ParseKind(cfg.Client.Adapter)
	if err != nil {
		return nil, err
	}
	syncAdapter, err := registry.New(kind, adapter.Options{
		Logger:   logger,
		BaseURL:  cfg.Client.ServerURL,
		ClientID: clientID,
		Timeout:  cfg.Client.Timeout,
		Compress: cfg.Client.Compress,
	})
	if err != nil {
		return nil, err
	}

	platform := netmon.NewManualPlatform(true)
	monitor := netmon.New(platform, netmon.Config{
		Logger:        logger,
		ProbeURL:      probeURL(cfg.Client, kind),
		ProbeInterval: cfg.Client.ProbeInterval,
	})

	dataService := data.NewService(store, tr, data.WithLogger(logger))

	opts := []engine.Option{
		engine.WithQueue(q),
		engine.WithStrategy(strategy),
		engine.WithMaxRetries(cfg.Retry.MaxRetries),
		engine.WithLogger(logger),
		engine.WithApplier(dataService),
	}
	if lastSync != nil {
		opts = append(opts, engine.WithLastSyncTime(*lastSync))
	}

	logger.Debug("Client opened",
		"client_id", clientID,
		"adapter", kind,
		"changes", tr.Len(),
		"queued", q.Len())

	return &App{
		Adapter:  syncAdapter,
		Storage:  store,
		Tracker:  tr,
		Queue:    q,
		Data:     dataService,
		Engine:   engine.New(syncAdapter, tr, monitor, opts...),
		Monitor:  monitor,
		Platform: platform,
		Retry:    retry.New(cfg.Retry),
		logger:   logger,
	}, nil
}

// resolveClientID prefers the configured id, then the stored one, and
// generates and stores a new one otherwise.
func resolveClientID(ctx context.Context, store *boltdb.Storage, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	stored, err := store.GetClientID(ctx)
	if err != nil {
		return "", err
	}
	if stored != "" {
		return stored, nil
	}
	clientID := uuid.New().String()
	if err := store.SaveClientID(ctx, clientID); err != nil {
		return "", err
	}
	return clientID, nil
}

func probeURL(cfg config.ClientConfig, kind adapter.Kind) string {
	if cfg.ProbeURL != "" {
		return cfg.ProbeURL
	}
	if kind == adapter.KindHTTP {
		return strings.TrimRight(cfg.ServerURL, "/") + httpadapter.PathHealth
	}
	return ""
}

// Start probes connectivity and subscribes the engine to transitions.
func (a *App) Start(ctx context.Context) {
	a.Monitor.Start(ctx)
	a.Engine.Start(ctx)
}

// Persist writes the unsynced changes, the queue snapshot and the last sync
// time to the local store.
func (a *App) Persist(ctx context.Context) error {
	a.Tracker.ClearSynced()

	err := a.Storage.SaveChanges(ctx, a.Tracker.All())
	err = multierr.Append(err, a.Storage.SaveOperations(ctx, a.Queue.List()))
	if lastSync := a.Engine.State().LastSyncTime; lastSync != nil {
		err = multierr.Append(err, a.Storage.SaveLastSyncTime(ctx, *lastSync))
	}
	if err != nil {
		return fmt.Errorf("failed to persist client state: %w", err)
	}
	return nil
}

// ExportChangeLog snapshots the unsynced changes and archives the log.
func (a *App) ExportChangeLog(ctx context.Context) (models.ChangeLog, error) {
	log := a.Tracker.ExportChangeLog()
	if err := a.Storage.AppendChangeLog(ctx, log); err != nil {
		return models.ChangeLog{}, err
	}
	return log, nil
}

// SyncWithRetry runs a sync and, while the failure is retryable, retries the
// failed operation with backoff. Each retry counts against the operation's
// retry limit.
func (a *App) SyncWithRetry(ctx context.Context, onRetry retry.OnRetryFunc) (*models.SyncResult, error) {
	var (
		result    *models.SyncResult
		permanent error
		opID      string
	)

	err := a.Retry.Do(ctx, func(ctx context.Context) error {
		var err error
		if opID == "" {
			result, err = a.Engine.Sync(ctx)
		} else {
			result, err = a.Engine.RetryOperation(ctx, opID)
		}
		if err == nil {
			return nil
		}
		if !retry.IsRetryable(err) {
			permanent = err
			return nil
		}
		if opID == "" {
			if opID = a.lastFailed(); opID == "" {
				permanent = err
				return nil
			}
		}
		return err
	}, onRetry)

	if permanent != nil {
		return result, permanent
	}
	return result, err
}

// lastFailed returns the id of the newest failed operation.
func (a *App) lastFailed() string {
	ops := a.Queue.List()
	for i := len(ops) - 1; i >= 0; i-- {
		if ops[i].Status == models.StatusFailed {
			return ops[i].ID
		}
	}
	return ""
}

// PendingConflicts returns the unresolved conflicts of this session plus
// those carried by failed pull-rebase operations of earlier sessions.
func (a *App) PendingConflicts() []models.Conflict {
	seen := make(map[string]struct{})
	var conflicts []models.Conflict
	collect := func(cs []models.Conflict) {
		for _, c := range cs {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			conflicts = append(conflicts, c)
		}
	}

	collect(a.Engine.Conflicts())
	for _, op := range a.Queue.List() {
		if op.Type == models.OperationPullRebase && op.Status == models.StatusFailed {
			collect(op.Conflicts)
		}
	}
	return conflicts
}

// ResolvePending resolves every pending conflict with strategy. On success
// the failed pull-rebase operations that carried them are completed.
func (a *App) ResolvePending(ctx context.Context, strategy models.Strategy) (int, error) {
	conflicts := a.PendingConflicts()
	if len(conflicts) == 0 {
		return 0, nil
	}
	if err := a.Engine.ResolveConflicts(ctx, conflicts, strategy); err != nil {
		return 0, err
	}

	for _, op := range a.Queue.List() {
		if op.Type == models.OperationPullRebase && op.Status == models.StatusFailed {
			_ = a.Queue.UpdateStatus(op.ID, models.StatusCompleted, nil)
		}
	}
	a.Queue.ClearCompleted()
	return len(conflicts), nil
}

// Close persists state, stops the engine and the monitor and closes the store.
func (a *App) Close(ctx context.Context) error {
	err := a.Persist(ctx)
	err = multierr.Append(err, a.Engine.Close())
	a.Monitor.Stop()
	return multierr.Append(err, a.Storage.Close())
}
