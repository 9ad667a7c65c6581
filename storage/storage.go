// Package storage persists the field values chosen in the picker.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common storage conditions.
var (
	// ErrNotFound indicates the requested field value was not found.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalidInput indicates invalid or malformed input was provided.
	ErrInvalidInput = errors.New("storage: invalid input")
	// ErrStorageCorrupt indicates data corruption was detected.
	ErrStorageCorrupt = errors.New("storage: data corruption detected")
	// ErrLockTimeout indicates a timeout acquiring a file lock.
	ErrLockTimeout = errors.New("storage: lock acquisition timeout")
)

// StorageError wraps storage errors with operation and entity context.
// Use errors.As() to extract this error type and get operation details:
//
//	var storErr *storage.StorageError
//	if errors.As(err, &storErr) {
//		fmt.Printf("Failed to %s %s %s: %v\n", storErr.Op, storErr.Entity, storErr.ID, storErr.Err)
//	}
type StorageError struct {
	// Op is the operation that failed ("read", "write", "delete", "lock").
	Op string
	// Entity is the entity type ("field", "store", "file").
	Entity string
	// ID is the entity ID if applicable.
	ID string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the storage error.
func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage: %s %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *StorageError) Unwrap() error { return e.Err }

// FieldStore persists one value per content item and field name.
// Implementations must be safe for concurrent use.
type FieldStore interface {
	// GetField returns the stored value or ErrNotFound.
	GetField(ctx context.Context, contentItemID, fieldName string) (*FieldValue, error)
	// PutField inserts or replaces the value for its content item and field.
	// ID and CreatedAt of an existing record are preserved.
	PutField(ctx context.Context, fv *FieldValue) error
	// DeleteField removes the value; ErrNotFound if there was none.
	DeleteField(ctx context.Context, contentItemID, fieldName string) error
	// ListFields returns the values of a content item ordered by field name.
	ListFields(ctx context.Context, contentItemID string) ([]*FieldValue, error)

	// Close releases any resources held by the store.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Open returns the store for backend at path.
func Open(backend, path string) (FieldStore, error) {
	var (
		store FieldStore
		err   error
	)
	switch backend {
	case BackendJSON:
		store, err = NewJSONStore(path)
	case BackendSQLite:
		store, err = NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", ErrInvalidInput, backend)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
