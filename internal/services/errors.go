package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Typed errors returned by the service layer. Handlers match these with
// errors.As and map them to 404/403/422/409 responses. Every guard failure
// returns one of these before any mutation happens.

// NotFoundError means a referenced entity does not exist.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func NewNotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// ForbiddenError means the authenticated user lacks the required permission
// or relationship for the operation.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	if e.Message == "" {
		return "forbidden"
	}
	return e.Message
}

func NewForbidden(msg string) error {
	return &ForbiddenError{Message: msg}
}

// ValidationError is a field-level or business-rule violation. The message is
// meant to be shown to the caller as-is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidation(msg string) error {
	return &ValidationError{Message: msg}
}

// ConflictError surfaces a write-write race reported by the persistence
// layer. The service layer never retries; callers decide.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflict(msg string) error {
	return &ConflictError{Message: msg}
}

// translateDBError maps a duplicate-key failure from the persistence layer to
// a ConflictError carrying msg. Guard checks run before every insert, so a
// duplicate key here means two requests raced past the same guard; the loser
// gets a Conflict instead of a raw driver error. Any other error passes
// through unchanged.
func translateDBError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicateKey(err) {
		return NewConflict(msg)
	}
	return err
}

// isDuplicateKey recognizes the unique-constraint messages of the three
// supported drivers; not every driver maps them to gorm.ErrDuplicatedKey.
func isDuplicateKey(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "Duplicate entry") || // mysql
		strings.Contains(msg, "duplicate key value violates unique constraint") // postgres
}
