package domain

import (
	"errors"
	"fmt"
)

var (
	// Validation errors, all matching ErrValidation
	ErrValidation         = errors.New("validation failed")
	ErrEmptyTitle         = fmt.Errorf("%w: title cannot be empty", ErrValidation)
	ErrTitleTooLong       = fmt.Errorf("%w: title exceeds 200 characters", ErrValidation)
	ErrDescriptionTooLong = fmt.Errorf("%w: description exceeds 2000 characters", ErrValidation)
	ErrInvalidDueDate     = fmt.Errorf("%w: due date must be RFC3339, YYYY-MM-DDTHH:MM:SS or YYYY-MM-DD", ErrValidation)

	ErrTaskNotFound   = errors.New("task not found")
	ErrStorageFailure = errors.New("storage failure")
)

// StorageError reports an I/O level fault in a persistence adapter.
// It matches both ErrStorageFailure and the underlying driver error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageFailure, e.Err}
}

// NewStorageError wraps err as a StorageError for op.
func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
