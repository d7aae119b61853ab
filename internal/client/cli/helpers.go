package cli

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseFields builds entity fields from a JSON object and key=value pairs.
// Pair values are decoded as JSON when possible, so amount=5 is a number
// and name=rent a string.
func parseFields(rawJSON string, pairs []string) (map[string]any, error) {
	fields := make(map[string]any)
	if rawJSON != "" {
		if err := json.Unmarshal([]byte(rawJSON), &fields); err != nil {
			return nil, fmt.Errorf("invalid --json: %w", err)
		}
	}

	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q, expected key=value", pair)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		fields[key] = value
	}
	return fields, nil
}

// shortID trims long identifiers for tabular output.
func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}
