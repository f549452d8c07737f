package repositories

import (
	"errors"
	"fmt"
)

// StoreError is the RepositoryError used by the in-process and sqlite drivers.
type StoreError struct {
	Op          string
	Err         error
	NotFound    bool
	Conflict    bool
	Unavailable bool
}

var _ RepositoryError = (*StoreError)(nil)

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap exposes the underlying error.
func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *StoreError) IsNotFound() bool    { return e != nil && e.NotFound }
func (e *StoreError) IsConflict() bool    { return e != nil && e.Conflict }
func (e *StoreError) IsUnavailable() bool { return e != nil && e.Unavailable }

// NewNotFound reports a missing record.
func NewNotFound(op, key string) *StoreError {
	return &StoreError{Op: op, Err: fmt.Errorf("%q not found", key), NotFound: true}
}

// NewUnavailable wraps a backend failure.
func NewUnavailable(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err, Unavailable: true}
}

// IsNotFound reports whether err is a RepositoryError for a missing record.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
