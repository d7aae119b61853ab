package api

import "time"

// Entity представляет синхронизируемую запись в формате передачи
type Entity struct {
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   *time.Time     `json:"deleted_at,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	ID          string         `json:"id"`
	WorkspaceID string         `json:"workspace_id"`
	Version     int64          `json:"version"`
}

// Change представляет одно изменение записи
type Change struct {
	Timestamp  time.Time `json:"timestamp"`
	Entity     Entity    `json:"entity"`
	ID         string    `json:"id"`          // ID уникален для (client_id, timestamp, random)
	EntityType string    `json:"entity_type"` // EntityType тип записи: transactions, budgets, ...
	Operation  string    `json:"operation"`   // Operation create, update или delete
	ClientID   string    `json:"client_id"`
}

// PushRequest представляет запрос на отправку изменений клиента
type PushRequest struct {
	ClientID string   `json:"client_id"`
	Changes  []Change `json:"changes"`
}

// PushResponse представляет ответ сервера на отправку изменений
type PushResponse struct {
	ServerTime time.Time `json:"server_time"`
	Accepted   int       `json:"accepted"`   // Accepted количество новых изменений
	Duplicates int       `json:"duplicates"` // Duplicates изменения, уже известные серверу
}

// PullResponse представляет ответ сервера с изменениями
type PullResponse struct {
	ServerTime time.Time `json:"server_time"`
	Changes    []Change  `json:"changes"`
}

// Conflict представляет конфликт одного поля записи
type Conflict struct {
	Timestamp   time.Time `json:"timestamp"`
	LocalValue  any       `json:"local_value"`
	RemoteValue any       `json:"remote_value"`
	Local       Entity    `json:"local"`
	Remote      Entity    `json:"remote"`
	ID          string    `json:"id"`
	EntityType  string    `json:"entity_type"`
	Field       string    `json:"field"`
}

// ResolveRequest представляет запрос на разрешение конфликтов на сервере
type ResolveRequest struct {
	Strategy  string     `json:"strategy"`
	Conflicts []Conflict `json:"conflicts"`
}

// ResolveResponse содержит записи, сохраненные сервером после разрешения
type ResolveResponse struct {
	Resolved []Entity `json:"resolved"`
}

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
