package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when a write collides with existing state
	ErrConflict = errors.New("conflict occurred")

	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")

	// ErrUnauthorized is returned when the bearer credential is missing or rejected
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMissingGameID is returned when a review is created for a game that
	// has not been imported into the catalog yet
	ErrMissingGameID = errors.New("game has no catalog id")

	// ErrMissingIdentity is returned when a game has neither a catalog id nor an external guid
	ErrMissingIdentity = errors.New("game has neither id nor external guid")
)

// Operation names carried by OpError
const (
	OpFetchReview  = "fetch_review"
	OpSaveReview   = "save_review"
	OpUpdateStatus = "update_status"
)

// OpError wraps a failure of one of the workflow network operations
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// IsOp reports whether err is an OpError for the given operation
func IsOp(err error, op string) bool {
	var opErr *OpError
	return errors.As(err, &opErr) && opErr.Op == op
}
