// Package engine orchestrates push, pull and conflict resolution between the
// local change tracker and a remote SyncAdapter.
//
// At most one synchronization call runs at a time: a second call made while
// one is in flight fails immediately with ErrSyncInProgress instead of
// waiting. While offline, work is deferred to the operation queue and
// drained in FIFO order once the monitor reports connectivity again.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iudanet/offsync/internal/adapter"
	"github.com/iudanet/offsync/internal/conflict"
	"github.com/iudanet/offsync/internal/models"
	"github.com/iudanet/offsync/internal/netmon"
	"github.com/iudanet/offsync/internal/queue"
	"github.com/iudanet/offsync/internal/retry"
	"github.com/iudanet/offsync/internal/tracker"
)

// Sentinel errors, matched by code with errors.Is.
var (
	ErrSyncInProgress = &models.SyncError{
		Code:    models.CodeSyncInProgress,
		Op:      "sync",
		Message: "synchronization already in progress",
	}
	ErrOperationNotFound = &models.SyncError{
		Code:    models.CodeOperationNotFound,
		Op:      "retry",
		Message: "operation not found",
	}
	ErrRetryLimitExceeded = &models.SyncError{
		Code:    models.CodeRetryLimitExceeded,
		Op:      "retry",
		Message: "retry limit exceeded",
	}
	ErrOperationNotRetryable = &models.SyncError{
		Code:    models.CodeOperationNotRetryable,
		Op:      "retry",
		Message: "only failed operations can be retried",
	}
)

// ErrClosed indicates that the engine was closed.
var ErrClosed = errors.New("engine closed")

//go:generate moq -out engine_mock.go . Monitor Applier

// Monitor reports connectivity. *netmon.Monitor implements it.
type Monitor interface {
	IsOnline() bool
	Subscribe(l netmon.Listener) (cancel func())
}

// Applier writes remote or resolved entities into the host store.
type Applier interface {
	Apply(ctx context.Context, change models.Change) error
}

// StateListener receives the state after every state-affecting call.
type StateListener func(models.SyncState)

// Engine is the synchronization state machine.
type Engine struct {
	adapter    adapter.SyncAdapter
	monitor    Monitor
	applier    Applier
	tracker    *tracker.Tracker
	queue      *queue.Queue
	resolver   *conflict.Resolver
	logger     *slog.Logger
	now        func() time.Time
	listeners  map[int]StateListener
	lastSync   *time.Time
	baseCtx    context.Context
	cancelBase context.CancelFunc
	strategy   models.Strategy
	cancels    []func()
	conflicts  []models.Conflict
	state      models.SyncState
	maxRetries int
	nextID     int
	wg         sync.WaitGroup
	syncing    atomic.Bool
	closed     atomic.Bool
	mu         sync.RWMutex
}

// New creates an engine. The adapter, tracker and monitor are required.
func New(syncAdapter adapter.SyncAdapter, tr *tracker.Tracker, monitor Monitor, opts ...Option) *Engine {
	e := &Engine{
		adapter:    syncAdapter,
		tracker:    tr,
		monitor:    monitor,
		queue:      queue.New(queue.DefaultMaxSize),
		resolver:   conflict.NewResolver(),
		logger:     slog.Default(),
		now:        time.Now,
		strategy:   models.StrategyLastWriteWins,
		maxRetries: retry.DefaultMaxRetries,
		listeners:  make(map[int]StateListener),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.baseCtx, e.cancelBase = context.WithCancel(context.Background())
	e.refreshState()
	return e
}

// Start subscribes to connectivity transitions and adapter errors. An
// online transition drains the queue and then runs a full sync.
func (e *Engine) Start(ctx context.Context) {
	cancelMonitor := e.monitor.Subscribe(func(status netmon.Status) {
		e.handleConnectivity(ctx, status.IsOnline)
	})
	cancelErrors := e.adapter.On(adapter.EventError, func(ev adapter.Event) {
		e.logger.Warn("Adapter reported error", "error", ev.Err)
	})

	e.mu.Lock()
	e.cancels = append(e.cancels, cancelMonitor, cancelErrors)
	e.mu.Unlock()
}

func (e *Engine) handleConnectivity(ctx context.Context, online bool) {
	if e.closed.Load() {
		return
	}
	e.logger.Info("Connectivity changed", "online", online)

	if !online {
		e.refreshState()
		e.notify()
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.reconnect(ctx); err != nil {
			e.logger.Warn("Sync after reconnect failed", "error", err)
		}
	}()
}

// reconnect drains the queue and then performs a full sync.
func (e *Engine) reconnect(ctx context.Context) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	ctx, cancel := e.bind(ctx)
	defer cancel()

	// Невыполненные операции остаются в очереди, изменения по-прежнему в трекере
	if _, err := e.drain(ctx); err != nil {
		e.logger.Warn("Queue drain after reconnect stopped", "error", err)
	}
	_, err := e.sync(ctx)
	return err
}

// bind ties ctx to the engine lifetime so Close cancels background work.
func (e *Engine) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(e.baseCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Close removes subscriptions, waits for background syncs and closes the adapter.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	e.mu.Lock()
	cancels := e.cancels
	e.cancels = nil
	e.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	e.cancelBase()
	e.wg.Wait()

	if err := e.adapter.Close(); err != nil {
		return fmt.Errorf("failed to close adapter: %w", err)
	}
	return nil
}

// begin acquires the reentrancy guard.
func (e *Engine) begin() error {
	if e.closed.Load() {
		return ErrClosed
	}
	if !e.syncing.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	e.refreshState()
	e.notify()
	return nil
}

func (e *Engine) end() {
	e.syncing.Store(false)
	e.refreshState()
	e.notify()
}

// Sync pushes unsynced changes, pulls remote changes and resolves conflicts.
// Offline, the unsynced changes are queued and the result carries an
// OFFLINE_ENQUEUED error while the returned error is nil.
func (e *Engine) Sync(ctx context.Context) (*models.SyncResult, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	return e.sync(ctx)
}

func (e *Engine) sync(ctx context.Context) (*models.SyncResult, error) {
	result := e.newResult()
	defer e.finish(result)

	if !e.monitor.IsOnline() {
		e.enqueueOffline(models.OperationPush, result)
		return result, nil
	}

	e.logger.Info("Starting synchronization", "client_id", e.tracker.ClientID())

	if err := e.push(ctx, result); err != nil {
		return result, err
	}
	if err := e.pull(ctx, result); err != nil {
		return result, err
	}

	e.logger.Info("Synchronization completed",
		"pushed", result.Pushed,
		"pulled", result.Pulled,
		"applied", result.Applied,
		"conflicts", len(result.Conflicts))

	return result, nil
}

// Push sends unsynced changes only.
func (e *Engine) Push(ctx context.Context) (*models.SyncResult, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	result := e.newResult()
	defer e.finish(result)

	if !e.monitor.IsOnline() {
		e.enqueueOffline(models.OperationPush, result)
		return result, nil
	}
	if err := e.push(ctx, result); err != nil {
		return result, err
	}
	return result, nil
}

// Pull fetches remote changes only. Offline, a pull operation is queued.
func (e *Engine) Pull(ctx context.Context) (*models.SyncResult, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	result := e.newResult()
	defer e.finish(result)

	if !e.monitor.IsOnline() {
		e.enqueueOffline(models.OperationPull, result)
		return result, nil
	}
	if err := e.pull(ctx, result); err != nil {
		return result, err
	}
	return result, nil
}

func (e *Engine) newResult() *models.SyncResult {
	return &models.SyncResult{
		Success:   true,
		StartedAt: e.now(),
	}
}

func (e *Engine) finish(result *models.SyncResult) {
	result.Duration = e.now().Sub(result.StartedAt)
}

// enqueueOffline defers work while offline. Consecutive offline calls
// update the newest pending operation of the same type in place.
func (e *Engine) enqueueOffline(opType models.OperationType, result *models.SyncResult) {
	var changes []models.Change
	if opType == models.OperationPush {
		changes = e.tracker.GetUnsynced()
	}

	message := "offline: nothing to push"
	if opType == models.OperationPull || len(changes) > 0 {
		op := e.pendingTail(opType)
		if op == nil {
			op = queue.NewOperation(opType, nil)
		}
		op.Changes = changes
		if evicted := e.queue.Enqueue(op); evicted != nil {
			e.logger.Warn("Operation queue full, oldest operation evicted", "operation_id", evicted.ID, "type", evicted.Type)
		}
		message = fmt.Sprintf("offline: %s operation queued", opType)
		e.logger.Info("Offline, operation queued", "operation_id", op.ID, "type", opType, "changes", len(changes))
	}

	result.AddError(models.NewSyncError(models.CodeOfflineEnqueued, string(opType), message, true, nil))
}

// pendingTail returns the newest queued operation when it is pending and of opType.
func (e *Engine) pendingTail(opType models.OperationType) *models.SyncOperation {
	ops := e.queue.List()
	if len(ops) == 0 {
		return nil
	}
	tail := ops[len(ops)-1]
	if tail.Type != opType || tail.Status != models.StatusPending {
		return nil
	}
	return tail
}

func (e *Engine) push(ctx context.Context, result *models.SyncResult) error {
	changes := e.tracker.GetUnsynced()
	if len(changes) == 0 {
		return nil
	}

	if err := e.pushChanges(ctx, changes); err != nil {
		syncErr := models.NewSyncError(models.CodePushFailed, "push",
			fmt.Sprintf("failed to push %d changes", len(changes)), retry.IsRetryable(err), err)
		e.recordFailedAttempt(models.OperationPush, changes, syncErr)
		result.AddError(syncErr)
		return syncErr
	}

	result.Pushed += len(changes)
	return nil
}

// pushChanges sends changes and marks them synced on success.
func (e *Engine) pushChanges(ctx context.Context, changes []models.Change) error {
	res, err := e.adapter.Push(ctx, changes)
	if err != nil {
		return err
	}
	if res != nil && !res.Success {
		if len(res.Errors) > 0 {
			return res.Errors[0]
		}
		return errors.New("push rejected by adapter")
	}

	marked := e.tracker.MarkSynced(models.ChangeIDs(changes)...)
	e.logger.Debug("Changes pushed", "count", len(changes), "marked", marked)
	e.settleFailedPushes()
	return nil
}

// settleFailedPushes completes failed push operations whose changes have
// all been synced by a later push.
func (e *Engine) settleFailedPushes() {
	settled := 0
	for _, op := range e.queue.List() {
		if op.Type != models.OperationPush || op.Status != models.StatusFailed {
			continue
		}
		if len(e.stillUnsynced(op.Changes)) > 0 {
			continue
		}
		if !e.queue.Retry(op.ID) {
			continue
		}
		e.setStatus(op.ID, models.StatusInProgress, nil)
		e.setStatus(op.ID, models.StatusCompleted, nil)
		settled++
	}
	if settled > 0 {
		e.queue.ClearCompleted()
		e.logger.Debug("Failed push operations settled", "count", settled)
	}
}

func (e *Engine) pull(ctx context.Context, result *models.SyncResult) error {
	started := e.now()

	remote, err := e.fetch(ctx)
	if err != nil {
		syncErr := models.NewSyncError(models.CodePullFailed, "pull", "failed to pull remote changes", retry.IsRetryable(err), err)
		e.recordFailedAttempt(models.OperationPull, nil, syncErr)
		result.AddError(syncErr)
		return syncErr
	}
	result.Pulled += len(remote)

	conflicts := e.integrate(ctx, remote, result)
	if len(conflicts) > 0 {
		result.Conflicts = append(result.Conflicts, conflicts...)
		e.autoResolve(ctx, conflicts, result)
	}

	e.mu.Lock()
	e.lastSync = &started
	e.mu.Unlock()
	return nil
}

// fetch uses delta pull when the adapter supports it and a previous sync exists.
func (e *Engine) fetch(ctx context.Context) ([]models.Change, error) {
	e.mu.RLock()
	lastSync := e.lastSync
	e.mu.RUnlock()

	if dp, ok := e.adapter.(adapter.DeltaPuller); ok && lastSync != nil {
		return dp.PullSince(ctx, *lastSync)
	}
	return e.adapter.Pull(ctx)
}

// integrate applies remote changes that do not touch locally pending
// entities and returns the conflicts for those that do.
func (e *Engine) integrate(ctx context.Context, remote []models.Change, result *models.SyncResult) []models.Conflict {
	latestLocal := e.latestUnsyncedByEntity()

	// Для каждой сущности сравниваем только последнюю удаленную версию
	contested := make(map[string]models.Change)
	var contestedOrder []string

	for _, rc := range remote {
		if rc.ClientID == e.tracker.ClientID() {
			continue
		}
		if _, pending := latestLocal[rc.EntityID()]; pending {
			if _, seen := contested[rc.EntityID()]; !seen {
				contestedOrder = append(contestedOrder, rc.EntityID())
			}
			contested[rc.EntityID()] = rc
			continue
		}
		if err := e.apply(ctx, rc); err != nil {
			result.AddError(models.NewSyncError(models.CodeApplyFailed, "apply",
				fmt.Sprintf("failed to apply change %s", rc.ID), false, err))
			continue
		}
		result.Applied++
	}

	var conflicts []models.Conflict
	for _, entityID := range contestedOrder {
		rc := contested[entityID]
		local := latestLocal[entityID]
		conflicts = append(conflicts, e.resolver.DetectConflicts(rc.EntityType, local.Entity, rc.Entity)...)
	}
	return conflicts
}

func (e *Engine) latestUnsyncedByEntity() map[string]models.Change {
	latest := make(map[string]models.Change)
	for _, c := range e.tracker.GetUnsynced() {
		latest[c.EntityID()] = c
	}
	return latest
}

func (e *Engine) apply(ctx context.Context, change models.Change) error {
	if e.applier == nil {
		return nil
	}
	return e.applier.Apply(ctx, change)
}

// autoResolve delegates conflicts to the adapter with the configured
// strategy. A failure leaves the conflicts pending and records a failed
// pull-rebase operation instead of failing the cycle.
func (e *Engine) autoResolve(ctx context.Context, conflicts []models.Conflict, result *models.SyncResult) {
	resolved, err := e.resolve(ctx, conflicts, e.strategy)
	if err == nil {
		return
	}

	syncErr := models.NewSyncError(models.CodeConflictResolution, "resolve",
		fmt.Sprintf("failed to resolve %d conflicts", len(conflicts)), retry.IsRetryable(err), err)
	result.AddError(syncErr)
	e.addConflicts(conflicts)

	op := queue.NewOperation(models.OperationPullRebase, nil)
	op.Strategy = e.strategy
	e.recordFailed(op, syncErr)
	e.recordResolutions(op.ID, conflicts, resolved)

	e.logger.Warn("Conflict resolution failed, conflicts left pending",
		"conflicts", len(conflicts), "operation_id", op.ID, "error", err)
}

// resolve settles conflicts through the adapter, then marks the superseded
// local changes synced and applies the resolved entities locally. The locally
// computed resolutions are returned even when the adapter rejects them.
func (e *Engine) resolve(ctx context.Context, conflicts []models.Conflict, strategy models.Strategy) ([]models.Entity, error) {
	if len(conflicts) == 0 {
		return nil, nil
	}
	resolved, err := e.resolver.ResolveAll(conflicts, strategy)
	if err != nil {
		return nil, err
	}
	if err := e.adapter.ResolveConflicts(ctx, conflicts, strategy); err != nil {
		return resolved, err
	}

	groups := conflict.GroupByEntity(conflicts)
	entityIDs := make(map[string]struct{}, len(groups))
	for i, entity := range resolved {
		entityType := groups[i][0].EntityType
		entityIDs[entity.ID] = struct{}{}

		var superseded []string
		for _, c := range e.tracker.GetChangesForEntity(entity.ID) {
			if !c.Synced {
				superseded = append(superseded, c.ID)
			}
		}
		e.tracker.MarkSynced(superseded...)

		change := models.Change{
			EntityType: entityType,
			Operation:  models.OperationUpdate,
			Entity:     entity,
			Timestamp:  e.now(),
			ClientID:   e.tracker.ClientID(),
			Synced:     true,
		}
		if entity.IsDeleted() {
			change.Operation = models.OperationDelete
		}
		if err := e.apply(ctx, change); err != nil {
			e.logger.Error("Failed to apply resolved entity", "entity_id", entity.ID, "error", err)
		}
	}

	e.removeConflicts(entityIDs)
	e.logger.Info("Conflicts resolved", "conflicts", len(conflicts), "entities", len(resolved), "strategy", strategy)
	return resolved, nil
}

// recordResolutions stores conflicts and their resolved entities on an operation.
func (e *Engine) recordResolutions(id string, conflicts []models.Conflict, resolved []models.Entity) {
	if err := e.queue.SetConflicts(id, conflicts, resolved); err != nil {
		e.logger.Warn("Failed to record resolutions", "operation_id", id, "error", err)
	}
}

// ResolveConflicts is the manual resolution path. On success the resolved
// conflicts are removed from state. Offline, a pending pull-rebase operation
// is queued and the conflicts stay visible until it is drained.
func (e *Engine) ResolveConflicts(ctx context.Context, conflicts []models.Conflict, strategy models.Strategy) error {
	if !strategy.Valid() {
		return models.NewSyncError(models.CodeConflictResolution, "resolve",
			fmt.Sprintf("unknown strategy %q", strategy), false, conflict.ErrUnknownStrategy)
	}
	if len(conflicts) == 0 {
		return nil
	}
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	if !e.monitor.IsOnline() {
		op := queue.NewOperation(models.OperationPullRebase, nil)
		op.Conflicts = conflicts
		op.Strategy = strategy
		e.queue.Enqueue(op)
		e.addConflicts(conflicts)
		e.logger.Info("Offline, conflict resolution queued", "operation_id", op.ID, "conflicts", len(conflicts))
		return nil
	}

	if _, err := e.resolve(ctx, conflicts, strategy); err != nil {
		e.addConflicts(conflicts)
		return models.NewSyncError(models.CodeConflictResolution, "resolve",
			fmt.Sprintf("failed to resolve %d conflicts", len(conflicts)), retry.IsRetryable(err), err)
	}
	return nil
}

// RetryOperation moves a failed operation back to pending, drains the queue
// and runs a full sync. Every retry counts against MaxRetries.
func (e *Engine) RetryOperation(ctx context.Context, id string) (*models.SyncResult, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	op, ok := e.queue.Get(id)
	if !ok {
		return nil, fmt.Errorf("operation %s: %w", id, ErrOperationNotFound)
	}
	if op.Status != models.StatusFailed {
		return nil, fmt.Errorf("operation %s is %s: %w", id, op.Status, ErrOperationNotRetryable)
	}
	if op.Attempts >= e.maxRetries {
		return nil, fmt.Errorf("operation %s retried %d times: %w", id, op.Attempts, ErrRetryLimitExceeded)
	}

	e.queue.Retry(id)
	e.logger.Info("Retrying operation", "operation_id", id, "type", op.Type, "attempt", op.Attempts+1)

	if !e.monitor.IsOnline() {
		result := e.newResult()
		result.AddError(models.NewSyncError(models.CodeOfflineEnqueued, "retry", "offline: operation will run on reconnect", true, nil))
		e.finish(result)
		return result, nil
	}

	if _, err := e.drain(ctx); err != nil {
		result := e.newResult()
		if syncErr, ok := models.AsSyncError(err); ok {
			result.AddError(syncErr)
		}
		e.finish(result)
		return result, err
	}
	return e.sync(ctx)
}

// DrainQueue runs pending operations in FIFO order and stops at the first
// failure, leaving the rest queued. It returns the number of completed operations.
func (e *Engine) DrainQueue(ctx context.Context) (int, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()

	return e.drain(ctx)
}

func (e *Engine) drain(ctx context.Context) (int, error) {
	defer e.queue.ClearCompleted()

	if !e.monitor.IsOnline() {
		return 0, nil
	}

	completed := 0
	for {
		if err := ctx.Err(); err != nil {
			return completed, err
		}

		op, ok := e.queue.Next()
		if !ok {
			return completed, nil
		}
		e.setStatus(op.ID, models.StatusInProgress, nil)

		if err := e.run(ctx, op); err != nil {
			e.setStatus(op.ID, models.StatusFailed, err)
			e.logger.Warn("Queued operation failed, drain stopped", "operation_id", op.ID, "type", op.Type, "error", err)
			return completed, err
		}

		e.setStatus(op.ID, models.StatusCompleted, nil)
		completed++
		e.logger.Debug("Queued operation completed", "operation_id", op.ID, "type", op.Type)
	}
}

func (e *Engine) run(ctx context.Context, op *models.SyncOperation) error {
	switch op.Type {
	case models.OperationPush:
		pending := e.stillUnsynced(op.Changes)
		if len(pending) == 0 {
			return nil
		}
		if err := e.pushChanges(ctx, pending); err != nil {
			return models.NewSyncError(models.CodePushFailed, "push",
				fmt.Sprintf("failed to push %d queued changes", len(pending)), retry.IsRetryable(err), err)
		}
		return nil

	case models.OperationPull:
		result := e.newResult()
		remote, err := e.fetch(ctx)
		if err != nil {
			return models.NewSyncError(models.CodePullFailed, "pull", "failed to pull remote changes", retry.IsRetryable(err), err)
		}
		if conflicts := e.integrate(ctx, remote, result); len(conflicts) > 0 {
			e.autoResolve(ctx, conflicts, result)
		}
		return nil

	case models.OperationPullRebase:
		strategy := op.Strategy
		if strategy == "" {
			strategy = e.strategy
		}
		resolved, err := e.resolve(ctx, op.Conflicts, strategy)
		if resolved != nil {
			e.recordResolutions(op.ID, op.Conflicts, resolved)
		}
		if err != nil {
			return models.NewSyncError(models.CodeConflictResolution, "resolve",
				fmt.Sprintf("failed to resolve %d conflicts", len(op.Conflicts)), retry.IsRetryable(err), err)
		}
		return nil

	default:
		return fmt.Errorf("unknown operation type %q", op.Type)
	}
}

// stillUnsynced returns the tracker copies of changes that are tracked and
// not yet synced, preserving order.
func (e *Engine) stillUnsynced(changes []models.Change) []models.Change {
	unsynced := make(map[string]models.Change)
	for _, c := range e.tracker.GetUnsynced() {
		unsynced[c.ID] = c
	}

	var pending []models.Change
	for _, c := range changes {
		if current, ok := unsynced[c.ID]; ok {
			pending = append(pending, current)
		}
	}
	return pending
}

// recordFailedAttempt records a failed push or pull. An operation of the same
// type that already failed is reused, so repeated failures of the same work
// leave a single failed operation behind.
func (e *Engine) recordFailedAttempt(opType models.OperationType, changes []models.Change, cause error) {
	for _, op := range e.queue.List() {
		if op.Type != opType || op.Status != models.StatusFailed {
			continue
		}
		op.Changes = changes
		op.Error = cause.Error()
		e.queue.Enqueue(op)
		return
	}
	e.recordFailed(queue.NewOperation(opType, changes), cause)
}

// recordFailed queues op and walks it through in-progress to failed.
func (e *Engine) recordFailed(op *models.SyncOperation, cause error) {
	if evicted := e.queue.Enqueue(op); evicted != nil {
		e.logger.Warn("Operation queue full, oldest operation evicted", "operation_id", evicted.ID, "type", evicted.Type)
	}
	e.setStatus(op.ID, models.StatusInProgress, nil)
	e.setStatus(op.ID, models.StatusFailed, cause)
}

func (e *Engine) setStatus(id string, status models.OperationStatus, cause error) {
	if err := e.queue.UpdateStatus(id, status, cause); err != nil {
		e.logger.Warn("Failed to update operation status", "operation_id", id, "status", status, "error", err)
	}
}

func (e *Engine) addConflicts(conflicts []models.Conflict) {
	e.mu.Lock()
	defer e.mu.Unlock()

	known := make(map[string]struct{}, len(e.conflicts))
	for _, c := range e.conflicts {
		known[c.ID] = struct{}{}
	}
	for _, c := range conflicts {
		if _, ok := known[c.ID]; !ok {
			e.conflicts = append(e.conflicts, c)
		}
	}
}

func (e *Engine) removeConflicts(entityIDs map[string]struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.conflicts[:0]
	for _, c := range e.conflicts {
		if _, resolved := entityIDs[c.EntityID()]; !resolved {
			kept = append(kept, c)
		}
	}
	e.conflicts = kept
}

// Conflicts returns the unresolved conflicts.
func (e *Engine) Conflicts() []models.Conflict {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]models.Conflict, len(e.conflicts))
	copy(result, e.conflicts)
	return result
}

// Queue returns the operation queue.
func (e *Engine) Queue() *queue.Queue {
	return e.queue
}

// State returns the current state snapshot.
func (e *Engine) State() models.SyncState {
	e.refreshState()

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *Engine) refreshState() {
	unsynced := e.tracker.GetUnsynced()
	pending := make(map[string]struct{}, len(unsynced))
	for _, c := range unsynced {
		pending[c.ID] = struct{}{}
	}

	failed := e.queue.FailedChanges(func(changeID string) bool {
		_, ok := pending[changeID]
		return ok
	})

	state := models.SyncState{
		IsOnline:       e.monitor.IsOnline(),
		IsSyncing:      e.syncing.Load(),
		PendingChanges: len(unsynced),
		FailedChanges:  failed,
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lastSync != nil {
		lastSync := *e.lastSync
		state.LastSyncTime = &lastSync
	}
	state.Conflicts = len(e.conflicts)
	e.state = state
}

// Subscribe registers a state listener and returns a function removing it.
func (e *Engine) Subscribe(l StateListener) (cancel func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	e.listeners[id] = l

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

func (e *Engine) notify() {
	e.mu.RLock()
	state := e.state
	listeners := make([]StateListener, 0, len(e.listeners))
	for _, l := range e.listeners {
		listeners = append(listeners, l)
	}
	e.mu.RUnlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("State listener panicked", "panic", fmt.Sprint(r))
				}
			}()
			l(state)
		}()
	}
}
