// Package validation checks identifiers that end up as storage keys and
// URL-visible values on both sides of the sync protocol.
package validation

import (
	"errors"
	"fmt"
	"regexp"
)

const (
	// MaxEntityTypeLen максимальная длина имени типа записи
	MaxEntityTypeLen = 64
	// MaxIDLen максимальная длина идентификатора записи, изменения или клиента
	MaxIDLen = 128
)

var (
	// EntityTypePattern определяет допустимое имя типа: transactions, budget_items, ...
	// Имя типа используется как имя bucket в локальном хранилище
	EntityTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

	// IDPattern определяет допустимый идентификатор: uuid, ulid, tx-1, laptop.home:2
	IDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:-]*$`)
)

// ErrInvalidIdentifier is wrapped by every error of this package.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// ValidateEntityType checks the name of an entity collection.
func ValidateEntityType(entityType string) error {
	switch {
	case entityType == "":
		return fmt.Errorf("%w: entity type cannot be empty", ErrInvalidIdentifier)
	case len(entityType) > MaxEntityTypeLen:
		return fmt.Errorf("%w: entity type must not exceed %d characters", ErrInvalidIdentifier, MaxEntityTypeLen)
	case !EntityTypePattern.MatchString(entityType):
		return fmt.Errorf("%w: entity type %q must start with a lowercase letter and contain only a-z, 0-9, _ and -", ErrInvalidIdentifier, entityType)
	}
	return nil
}

// ValidateID checks an entity, change or client identifier. kind names the
// identifier in the error message.
func ValidateID(kind, id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidIdentifier, kind)
	case len(id) > MaxIDLen:
		return fmt.Errorf("%w: %s must not exceed %d characters", ErrInvalidIdentifier, kind, MaxIDLen)
	case !IDPattern.MatchString(id):
		return fmt.Errorf("%w: %s %q can only contain letters, numbers, '_', '.', ':' and '-'", ErrInvalidIdentifier, kind, id)
	}
	return nil
}
