package models

import (
	"fmt"
	"time"
)

// Strategy selects how a conflict between a local and a remote version is resolved.
type Strategy string

const (
	StrategyLocal         Strategy = "local"
	StrategyRemote        Strategy = "remote"
	StrategyMerge         Strategy = "merge"
	StrategyLastWriteWins Strategy = "last-write-wins"
)

// Strategies lists every supported strategy.
var Strategies = []Strategy{StrategyLocal, StrategyRemote, StrategyMerge, StrategyLastWriteWins}

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	for _, known := range Strategies {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStrategy converts configuration or user input into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	strategy := Strategy(s)
	if !strategy.Valid() {
		return "", fmt.Errorf("unknown conflict strategy %q", s)
	}
	return strategy, nil
}

// Conflict describes one differing field between a local and a remote
// version of the same entity.
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

// EntityID returns the id of the conflicting entity.
func (c Conflict) EntityID() string {
	if c.Local.ID != "" {
		return c.Local.ID
	}
	return c.Remote.ID
}
