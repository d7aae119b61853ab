// Package handlers implements the HTTP endpoints of the reference backend.
package handlers

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/iudanet/offsync/internal/conflict"
	"github.com/iudanet/offsync/internal/models"
	"github.com/iudanet/offsync/internal/server/storage"
	"github.com/iudanet/offsync/pkg/api"
)

// ServerClientID is stamped on changes produced by server-side resolution.
const ServerClientID = "server"

// MaxBodySize bounds a decoded request body.
const MaxBodySize = 16 << 20

// SyncHandler serves the change log and conflict resolution.
type SyncHandler struct {
	logger   *slog.Logger
	storage  storage.ChangeStorage
	resolver *conflict.Resolver
	now      func() time.Time
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(logger *slog.Logger, store storage.ChangeStorage) *SyncHandler {
	return &SyncHandler{
		logger:   logger,
		storage:  store,
		resolver: conflict.NewResolver(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Pull обрабатывает GET /api/v1/changes?since=RFC3339Nano
// Без since возвращается весь журнал
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			h.logger.Warn("Invalid since parameter", "since", raw, "error", err)
			writeError(w, h.logger, http.StatusBadRequest, "invalid since parameter")
			return
		}
		since = parsed
	}

	// Время сервера фиксируем до чтения, чтобы не потерять изменения, пришедшие во время запроса
	serverTime := h.now()

	changes, err := h.storage.ChangesSince(r.Context(), since)
	if err != nil {
		h.logger.Error("Failed to read changes", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, api.PullResponse{
		ServerTime: serverTime,
		Changes:    models.ChangesToAPI(changes),
	})

	h.logger.Debug("Changes pulled",
		"client_id", r.Header.Get("X-Client-ID"),
		"since", since,
		"count", len(changes))
}

// Push обрабатывает POST /api/v1/changes
// Повторно присланные изменения подтверждаются, но не сохраняются второй раз
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	var req api.PushRequest
	if !h.decode(w, r, &req) {
		return
	}

	changes, err := models.ChangesFromAPI(req.Changes)
	if err != nil {
		h.logger.Warn("Invalid change in push request", "client_id", req.ClientID, "error", err)
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	receivedAt := h.now()
	accepted, err := h.storage.SaveChanges(r.Context(), changes, receivedAt)
	if err != nil {
		h.logger.Error("Failed to save changes", "client_id", req.ClientID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, api.PushResponse{
		ServerTime: receivedAt,
		Accepted:   accepted,
		Duplicates: len(changes) - accepted,
	})

	h.logger.Info("Changes pushed",
		"client_id", req.ClientID,
		"received", len(changes),
		"accepted", accepted)
}

// Resolve обрабатывает POST /api/v1/conflicts/resolve
// Разрешенные записи сохраняются как новые изменения сервера
func (h *SyncHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req api.ResolveRequest
	if !h.decode(w, r, &req) {
		return
	}

	strategy, err := models.ParseStrategy(req.Strategy)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Conflicts) == 0 {
		writeError(w, h.logger, http.StatusBadRequest, conflict.ErrNoConflicts.Error())
		return
	}

	conflicts := make([]models.Conflict, 0, len(req.Conflicts))
	for _, c := range req.Conflicts {
		conflicts = append(conflicts, models.ConflictFromAPI(c))
	}

	resolved, err := h.resolver.ResolveAll(conflicts, strategy)
	if err != nil {
		h.logger.Warn("Conflict resolution rejected", "strategy", strategy, "error", err)
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	changes, err := h.supersede(r, conflicts, resolved)
	if err != nil {
		h.logger.Error("Failed to prepare resolved entities", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	if _, err := h.storage.SaveChanges(r.Context(), changes, h.now()); err != nil {
		h.logger.Error("Failed to save resolved entities", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := api.ResolveResponse{Resolved: make([]api.Entity, 0, len(changes))}
	for _, c := range changes {
		resp.Resolved = append(resp.Resolved, models.EntityToAPI(c.Entity))
	}
	writeJSON(w, h.logger, http.StatusOK, resp)

	h.logger.Info("Conflicts resolved",
		"client_id", r.Header.Get("X-Client-ID"),
		"conflicts", len(conflicts),
		"entities", len(changes),
		"strategy", strategy)
}

// supersede builds server changes for resolved entities. Each entity gets a
// version above both conflicting sides and the stored state so that every
// client accepts it.
func (h *SyncHandler) supersede(r *http.Request, conflicts []models.Conflict, resolved []models.Entity) ([]models.Change, error) {
	now := h.now()
	groups := conflict.GroupByEntity(conflicts)

	changes := make([]models.Change, 0, len(resolved))
	for i, entity := range resolved {
		entityType := groups[i][0].EntityType

		version := entity.Version
		for _, c := range groups[i] {
			version = max(version, c.Local.Version, c.Remote.Version)
		}
		stored, err := h.storage.GetEntity(r.Context(), entityType, entity.ID)
		switch {
		case err == nil:
			version = max(version, stored.Version)
		case !errors.Is(err, storage.ErrEntityNotFound):
			return nil, fmt.Errorf("failed to get entity %s: %w", entity.ID, err)
		}

		entity.Version = version + 1
		entity.UpdatedAt = now

		op := models.OperationUpdate
		if entity.IsDeleted() {
			op = models.OperationDelete
		}
		changes = append(changes, models.Change{
			ID:         ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
			EntityType: entityType,
			Operation:  op,
			Entity:     entity,
			Timestamp:  now,
			ClientID:   ServerClientID,
		})
	}
	return changes, nil
}

func (h *SyncHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Warn("Failed to decode request", "path", r.URL.Path, "error", err)

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, h.logger, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
