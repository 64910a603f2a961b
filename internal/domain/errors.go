package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input
	ErrValidation = errors.New("validation failed")
	// ErrAliasConflict is returned when a custom alias is already in use
	ErrAliasConflict = errors.New("custom alias already in use")
	// ErrNotFound covers both absent and inaccessible links
	ErrNotFound = errors.New("link not found")
	// ErrExpired is returned for links past their expiration date
	ErrExpired = errors.New("link expired")
	// ErrInvalidPassword is returned on a password mismatch
	ErrInvalidPassword = errors.New("invalid password")
	// ErrExhaustedRetries means no free short code was found within the attempt budget
	ErrExhaustedRetries = errors.New("short code generation exhausted retries")
	// ErrStorage marks unexpected store failures
	ErrStorage = errors.New("storage failure")
)

// ValidationError describes which input field was rejected
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) match
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for field
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StorageError wraps a store failure the business logic did not anticipate
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrStorage) match
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// NewStorageError wraps err as a StorageError for op
func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
