// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// ErrProtocol marks a request that could not be understood: bad JSON,
	// a missing or unknown type, or missing clip fields.
	ErrProtocol = errors.New("protocol error")
	// ErrPersistence marks a failed directory creation or clip file write.
	ErrPersistence = errors.New("persistence error")
	// ErrInvalidFolder is returned when a storage root cannot be used.
	ErrInvalidFolder = errors.New("invalid folder")
	// ErrAlreadyRunning is returned when another instance owns the clip store.
	ErrAlreadyRunning = errors.New("another instance is already running")
)
