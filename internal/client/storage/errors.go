package storage

import "errors"

// Common client storage errors
var (
	// ErrEntityNotFound indicates that no entity with the given type and id is stored
	ErrEntityNotFound = errors.New("entity not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
