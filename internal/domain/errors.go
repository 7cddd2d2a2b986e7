package domain

import "errors"

var (
	// ErrNotFound is returned when a referenced entity id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when the caller is not authenticated or not the owning user.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation is returned for bad input: unknown option, non-future schedule,
	// non-positive duration, empty text.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned for re-submission, duplicate question membership,
	// or edits locked by the lifecycle rule.
	ErrConflict = errors.New("conflict")
	// ErrStorage is returned when the storage collaborator fails.
	ErrStorage = errors.New("storage failure")
	// ErrAllocation is returned when id generation fails.
	ErrAllocation = errors.New("id allocation failed")
)
