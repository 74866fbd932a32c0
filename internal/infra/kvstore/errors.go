package kvstore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOpened is returned by every primitive used before Open succeeds
	// or after Close.
	ErrNotOpened = errors.New("kvstore: database not opened, call Open first")

	// ErrUnknownStore is returned for a store that was not declared in the
	// Config or has not been created yet.
	ErrUnknownStore = errors.New("kvstore: unknown store")

	// ErrMissingKey is returned when a record has no usable primary key.
	ErrMissingKey = errors.New("kvstore: record has no primary key")
)

// OpenError wraps any failure that prevented the database from opening.
type OpenError struct {
	Name string
	Err  error
}

func (e *OpenError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to open database %s: unknown error", e.Name)
	}
	return fmt.Sprintf("failed to open database %s: %v", e.Name, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// OperationError wraps an engine or encoding failure of a single primitive.
type OperationError struct {
	Op    string
	Store string
	Err   error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("kvstore: %s on store %q: %v", e.Op, e.Store, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
