// Package memory provides an in-process SyncAdapter. It behaves like a
// remote change log with idempotent upserts and supports failure injection.
package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/offsync/internal/adapter"
	"github.com/iudanet/offsync/internal/conflict"
	"github.com/iudanet/offsync/internal/models"
)

// ServerClientID is stamped on changes produced by server-side resolution.
const ServerClientID = "memory-server"

var (
	// ErrClosed indicates that the adapter was closed.
	ErrClosed = errors.New("adapter closed")
)

type record struct {
	receivedAt time.Time
	change     models.Change
}

// Adapter is an in-memory remote.
type Adapter struct {
	emitter    *adapter.Emitter
	resolver   *conflict.Resolver
	logger     *slog.Logger
	now        func() time.Time
	seen       map[string]struct{}
	entities   map[string]models.Entity
	pushErr    error
	pullErr    error
	resolveErr error
	log        []record
	closed     bool
	mu         sync.RWMutex
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithClock overrides the time source used to stamp received changes.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		a.now = now
	}
}

// WithLogger sets the adapter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an empty in-memory remote.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		resolver: conflict.NewResolver(),
		logger:   slog.Default(),
		now:      time.Now,
		seen:     make(map[string]struct{}),
		entities: make(map[string]models.Entity),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.emitter = adapter.NewEmitter(a.logger)
	return a
}

// Factory builds an Adapter for the registry.
func Factory(opts adapter.Options) (adapter.SyncAdapter, error) {
	return New(WithLogger(opts.Logger)), nil
}

// SetPushError makes every following Push fail with err; nil clears it.
func (a *Adapter) SetPushError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pushErr = err
}

// SetPullError makes every following Pull fail with err; nil clears it.
func (a *Adapter) SetPullError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pullErr = err
}

// SetResolveError makes every following ResolveConflicts fail with err; nil clears it.
func (a *Adapter) SetResolveError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resolveErr = err
}

// Push implements adapter.SyncAdapter. Changes already received are
// acknowledged without being stored again.
func (a *Adapter) Push(ctx context.Context, changes []models.Change) (*models.SyncResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	if err := a.checkLocked(a.pushErr); err != nil {
		a.mu.Unlock()
		a.emitter.Emit(adapter.Event{Type: adapter.EventError, Err: err})
		return nil, err
	}

	started := a.now()
	accepted := 0
	for _, change := range changes {
		if a.storeLocked(change, started) {
			accepted++
		}
	}
	a.mu.Unlock()

	a.logger.Debug("Memory remote received changes", "count", len(changes), "accepted", accepted)

	result := &models.SyncResult{
		Success:   true,
		Pushed:    len(changes),
		StartedAt: started,
	}
	a.emitter.Emit(adapter.Event{Type: adapter.EventSynced, Payload: result})
	return result, nil
}

func (a *Adapter) storeLocked(change models.Change, receivedAt time.Time) bool {
	if _, dup := a.seen[change.ID]; dup {
		return false
	}
	stored := change.Clone()
	stored.Synced = false
	a.seen[change.ID] = struct{}{}
	a.log = append(a.log, record{change: stored, receivedAt: receivedAt})

	current, exists := a.entities[stored.EntityID()]
	if !exists || stored.Entity.Version >= current.Version {
		a.entities[stored.EntityID()] = stored.Entity.Clone()
	}
	return true
}

// Pull implements adapter.SyncAdapter.
func (a *Adapter) Pull(ctx context.Context) ([]models.Change, error) {
	return a.pull(ctx, time.Time{})
}

// PullSince implements adapter.DeltaPuller: it returns changes received
// strictly after since.
func (a *Adapter) PullSince(ctx context.Context, since time.Time) ([]models.Change, error) {
	return a.pull(ctx, since)
}

func (a *Adapter) pull(ctx context.Context, since time.Time) ([]models.Change, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	if err := a.checkLocked(a.pullErr); err != nil {
		a.mu.RUnlock()
		a.emitter.Emit(adapter.Event{Type: adapter.EventError, Err: err})
		return nil, err
	}

	changes := make([]models.Change, 0, len(a.log))
	for _, r := range a.log {
		if since.IsZero() || r.receivedAt.After(since) {
			changes = append(changes, r.change.Clone())
		}
	}
	a.mu.RUnlock()

	a.emitter.Emit(adapter.Event{Type: adapter.EventStatus, Payload: len(changes)})
	return changes, nil
}

// ResolveConflicts implements adapter.SyncAdapter. The resolved entities are
// stored as new server changes so that other clients pull them.
func (a *Adapter) ResolveConflicts(ctx context.Context, conflicts []models.Conflict, strategy models.Strategy) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkLocked(a.resolveErr); err != nil {
		return err
	}

	resolved, err := a.resolver.ResolveAll(conflicts, strategy)
	if err != nil {
		return err
	}

	now := a.now()
	groups := conflict.GroupByEntity(conflicts)
	for i, entity := range resolved {
		a.storeLocked(models.Change{
			ID:         ServerClientID + "-" + entity.ID + "-" + now.Format(time.RFC3339Nano),
			EntityType: groups[i][0].EntityType,
			Operation:  models.OperationUpdate,
			Entity:     entity,
			Timestamp:  now,
			ClientID:   ServerClientID,
		}, now)
	}
	return nil
}

func (a *Adapter) checkLocked(injected error) error {
	if a.closed {
		return ErrClosed
	}
	return injected
}

// Seed stores changes as if another client had pushed them.
func (a *Adapter) Seed(changes ...models.Change) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	for _, change := range changes {
		a.storeLocked(change, now)
	}
}

// Entity returns the latest known remote version of an entity.
func (a *Adapter) Entity(id string) (models.Entity, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	e, ok := a.entities[id]
	return e.Clone(), ok
}

// Len returns the number of changes in the remote log.
func (a *Adapter) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.log)
}

// On implements adapter.SyncAdapter.
func (a *Adapter) On(eventType adapter.EventType, handler adapter.Handler) func() {
	return a.emitter.On(eventType, handler)
}

// Close implements adapter.SyncAdapter.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.emitter.Emit(adapter.Event{Type: adapter.EventDisconnected})
	a.emitter.Clear()
	return nil
}
