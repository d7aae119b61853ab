package storage

import "errors"

// Common storage errors
var (
	// ErrEntityNotFound indicates that no entity with the given type and id exists
	ErrEntityNotFound = errors.New("entity not found")
)
