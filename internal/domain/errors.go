package domain

import "errors"

var (
	// ErrStoreUnavailable: the backing store cannot be reached.
	ErrStoreUnavailable = errors.New("employee store unavailable")
	// ErrNotFound: no employee has the requested id.
	ErrNotFound = errors.New("employee not found")
	// ErrValidation: submitted fields violate the store constraints.
	ErrValidation = errors.New("employee validation failed")
	// ErrInvariantViolation: more than one row shares an id.
	ErrInvariantViolation = errors.New("employee id is not unique")
)
