package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

var (
	created = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	deleted = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
)

// TestWireFormat pins the JSON shape shared by clients and the server.
func TestWireFormat(t *testing.T) {
	tests := []struct {
		value any
		name  string
	}{
		{
			name: "push_request",
			value: PushRequest{
				ClientID: "laptop",
				Changes: []Change{{
					Timestamp: created,
					Entity: Entity{
						CreatedAt:   created,
						UpdatedAt:   created,
						Fields:      map[string]any{"note": "coffee", "amount": 12.5},
						ID:          "tx-1",
						WorkspaceID: "ws-1",
						Version:     2,
					},
					ID:         "change-1",
					EntityType: "transactions",
					Operation:  "update",
					ClientID:   "laptop",
				}},
			},
		},
		{
			name:  "push_response",
			value: PushResponse{ServerTime: created, Accepted: 1},
		},
		{
			name: "resolve_request",
			value: ResolveRequest{
				Strategy: "merge",
				Conflicts: []Conflict{{
					Timestamp:  created,
					LocalValue: 12.5,
					Local: Entity{
						CreatedAt:   created,
						UpdatedAt:   created,
						Fields:      map[string]any{"amount": 12.5},
						ID:          "tx-1",
						WorkspaceID: "ws-1",
						Version:     2,
					},
					Remote: Entity{
						CreatedAt:   created,
						UpdatedAt:   deleted,
						DeletedAt:   &deleted,
						ID:          "tx-1",
						WorkspaceID: "ws-1",
						Version:     3,
					},
					ID:         "conflict-1",
					EntityType: "transactions",
					Field:      "amount",
				}},
			},
		},
		{
			name:  "error_response",
			value: ErrorResponse{Error: "invalid since parameter"},
		},
		{
			name:  "health_response",
			value: HealthResponse{Status: "ok", Version: "1.2.0"},
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.MarshalIndent(tt.value, "", "  ")
			require.NoError(t, err)
			g.Assert(t, tt.name, append(data, '\n'))
		})
	}
}
