// Package domain holds the quote model, the merge and filter rules, and the
// error taxonomy. Errors here describe quote-level failures; adapters map them
// to transport codes.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates business rule validation failed.
	ErrValidation = errors.New("validation failed")

	// ErrUnavailable indicates a required dependency is unavailable.
	ErrUnavailable = errors.New("unavailable")

	// ErrImport indicates an import document could not be parsed.
	ErrImport = errors.New("import failed")

	// ErrPersistence indicates the durable store could not be read or written.
	ErrPersistence = errors.New("persistence unavailable")

	// ErrSyncFetch indicates the remote quote source could not be fetched or decoded.
	ErrSyncFetch = errors.New("sync fetch failed")
)

// NotFoundError provides context for not found errors.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with id %q not found", e.Entity, e.ID)
	}

	return e.Entity + " not found"
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFoundError creates a not found error with context.
func NewNotFoundError(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError provides context for validation errors.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}

	return "validation failed: " + e.Message
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a validation error with context.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue creates a validation error including the invalid value.
func NewValidationErrorWithValue(field, message string, value any) error {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// UnavailableError provides context for unavailable errors.
type UnavailableError struct {
	Service string
	Reason  string
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("service %q unavailable: %s", e.Service, e.Reason)
	}

	return fmt.Sprintf("service %q unavailable", e.Service)
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *UnavailableError) Unwrap() error {
	return ErrUnavailable
}

// NewUnavailableError creates an unavailable error with context.
func NewUnavailableError(service, reason string) error {
	return &UnavailableError{Service: service, Reason: reason}
}

// ImportError provides context for a rejected import document.
type ImportError struct {
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *ImportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("import failed: %s: %v", e.Reason, e.Cause)
	}

	return "import failed: " + e.Reason
}

// Unwrap returns the sentinel and the cause for errors.Is() support.
func (e *ImportError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrImport, e.Cause}
	}

	return []error{ErrImport}
}

// NewImportError creates an import error with context.
func NewImportError(reason string, cause error) error {
	return &ImportError{Reason: reason, Cause: cause}
}

// PersistenceError reports a failed read or write against the durable store.
// The in-memory collection stays authoritative when this is returned from a mutation.
type PersistenceError struct {
	Operation string
	Key       string
	Cause     error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("persistence unavailable: %s %q: %v", e.Operation, e.Key, e.Cause)
	}

	return fmt.Sprintf("persistence unavailable: %s %q", e.Operation, e.Key)
}

// Unwrap returns the sentinel and the cause for errors.Is() support.
func (e *PersistenceError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrPersistence, e.Cause}
	}

	return []error{ErrPersistence}
}

// NewPersistenceError creates a persistence error for the given operation and key.
func NewPersistenceError(operation, key string, cause error) error {
	return &PersistenceError{Operation: operation, Key: key, Cause: cause}
}

// SyncFetchError reports a failed fetch or decode of the remote quote source.
type SyncFetchError struct {
	Source string
	Cause  error
}

// Error implements the error interface.
func (e *SyncFetchError) Error() string {
	return fmt.Sprintf("sync fetch from %q failed: %v", e.Source, e.Cause)
}

// Unwrap returns the sentinel and the cause for errors.Is() support.
func (e *SyncFetchError) Unwrap() []error {
	return []error{ErrSyncFetch, e.Cause}
}

// NewSyncFetchError creates a sync fetch error.
func NewSyncFetchError(source string, cause error) error {
	return &SyncFetchError{Source: source, Cause: cause}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsUnavailable checks if an error is an unavailable error.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsImport checks if an error is an import error.
func IsImport(err error) bool {
	return errors.Is(err, ErrImport)
}

// IsPersistence checks if an error is a persistence error.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// IsSyncFetch checks if an error is a sync fetch error.
func IsSyncFetch(err error) bool {
	return errors.Is(err, ErrSyncFetch)
}
