// Package httpadapter implements adapter.SyncAdapter over the REST API of
// the reference server.
package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/iudanet/offsync/internal/adapter"
	"github.com/iudanet/offsync/internal/models"
	"github.com/iudanet/offsync/internal/zstdcompress"
	"github.com/iudanet/offsync/pkg/api"
)

// API paths.
const (
	PathChanges    = "/api/v1/changes"
	PathResolve    = "/api/v1/conflicts/resolve"
	PathHealth     = "/api/v1/health"
	DefaultTimeout = 30 * time.Second
)

var (
	// ErrBaseURLRequired indicates that the adapter was configured without a server URL.
	ErrBaseURLRequired = errors.New("base url is required")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Message string
	Code    int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Code, e.Message)
}

// StatusCode returns the HTTP status of the response.
func (e *StatusError) StatusCode() int {
	return e.Code
}

// Client представляет HTTP клиент для взаимодействия с сервером синхронизации
type Client struct {
	httpClient *http.Client
	emitter    *adapter.Emitter
	logger     *slog.Logger
	baseURL    string
	clientID   string
	compress   bool
	connected  bool
	mu         sync.Mutex
}

// New создает новый HTTP адаптер
func New(opts adapter.Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, ErrBaseURLRequired
	}
	if _, err := url.ParseRequestURI(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{
			Timeout: timeout,
			// Ограничиваем количество редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				return nil
			},
		}
	}

	return &Client{
		httpClient: httpClient,
		emitter:    adapter.NewEmitter(opts.Logger),
		logger:     opts.Logger,
		baseURL:    opts.BaseURL,
		clientID:   opts.ClientID,
		compress:   opts.Compress,
	}, nil
}

// Factory builds a Client for the adapter registry.
func Factory(opts adapter.Options) (adapter.SyncAdapter, error) {
	return New(opts)
}

// Push отправляет изменения на сервер
func (c *Client) Push(ctx context.Context, changes []models.Change) (*models.SyncResult, error) {
	started := time.Now()
	req := api.PushRequest{
		ClientID: c.clientID,
		Changes:  models.ChangesToAPI(changes),
	}

	var resp api.PushResponse
	if err := c.doRequest(ctx, http.MethodPost, PathChanges, req, &resp); err != nil {
		return nil, fmt.Errorf("push request failed: %w", err)
	}

	c.logger.Debug("Changes pushed", "count", len(changes), "accepted", resp.Accepted, "duplicates", resp.Duplicates)

	result := &models.SyncResult{
		Success:   true,
		Pushed:    len(changes),
		StartedAt: started,
		Duration:  time.Since(started),
	}
	c.emitter.Emit(adapter.Event{Type: adapter.EventSynced, Payload: result})
	return result, nil
}

// Pull получает все изменения с сервера
func (c *Client) Pull(ctx context.Context) ([]models.Change, error) {
	return c.pull(ctx, PathChanges)
}

// PullSince получает изменения, принятые сервером после since
func (c *Client) PullSince(ctx context.Context, since time.Time) ([]models.Change, error) {
	if since.IsZero() {
		return c.Pull(ctx)
	}
	query := url.Values{"since": []string{since.UTC().Format(time.RFC3339Nano)}}
	return c.pull(ctx, PathChanges+"?"+query.Encode())
}

func (c *Client) pull(ctx context.Context, path string) ([]models.Change, error) {
	var resp api.PullResponse
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("pull request failed: %w", err)
	}

	changes, err := models.ChangesFromAPI(resp.Changes)
	if err != nil {
		c.emitter.Emit(adapter.Event{Type: adapter.EventError, Err: err})
		return nil, fmt.Errorf("invalid pull response: %w", err)
	}

	c.emitter.Emit(adapter.Event{Type: adapter.EventStatus, Payload: len(changes)})
	return changes, nil
}

// ResolveConflicts передает конфликты на сервер для разрешения
func (c *Client) ResolveConflicts(ctx context.Context, conflicts []models.Conflict, strategy models.Strategy) error {
	req := api.ResolveRequest{
		Strategy:  string(strategy),
		Conflicts: make([]api.Conflict, 0, len(conflicts)),
	}
	for _, conflict := range conflicts {
		req.Conflicts = append(req.Conflicts, models.ConflictToAPI(conflict))
	}

	var resp api.ResolveResponse
	if err := c.doRequest(ctx, http.MethodPost, PathResolve, req, &resp); err != nil {
		return fmt.Errorf("resolve request failed: %w", err)
	}

	c.logger.Debug("Conflicts resolved by server", "conflicts", len(conflicts), "resolved", len(resp.Resolved))
	return nil
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodHead, PathHealth, nil, nil)
}

// On implements adapter.SyncAdapter.
func (c *Client) On(eventType adapter.EventType, handler adapter.Handler) func() {
	return c.emitter.On(eventType, handler)
}

// Close implements adapter.SyncAdapter.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	c.emitter.Clear()
	return nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	err := c.roundTrip(ctx, method, path, body, result)
	c.trackConnection(err)
	if err != nil {
		c.emitter.Emit(adapter.Event{Type: adapter.EventError, Err: err})
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		if c.compress {
			jsonData = zstdcompress.Compress(jsonData)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		if c.compress {
			req.Header.Set("Content-Encoding", zstdcompress.Encoding)
		}
	}
	if c.clientID != "" {
		req.Header.Set("X-Client-ID", c.clientID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			return &StatusError{Code: resp.StatusCode, Message: errResp.Error}
		}
		return &StatusError{Code: resp.StatusCode, Message: string(bytes.TrimSpace(respBody))}
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// trackConnection emits connected/disconnected on reachability changes.
// Any HTTP response, even an error status, means the server is reachable.
func (c *Client) trackConnection(err error) {
	var statusErr *StatusError
	reachable := err == nil || errors.As(err, &statusErr)
	if err != nil && errors.Is(err, context.Canceled) {
		return
	}

	c.mu.Lock()
	changed := c.connected != reachable
	c.connected = reachable
	c.mu.Unlock()

	if !changed {
		return
	}
	if reachable {
		c.logger.Info("Connected to sync server", "url", c.baseURL)
		c.emitter.Emit(adapter.Event{Type: adapter.EventConnected})
		return
	}
	c.logger.Warn("Lost connection to sync server", "url", c.baseURL, "error", err)
	c.emitter.Emit(adapter.Event{Type: adapter.EventDisconnected, Err: err})
}
