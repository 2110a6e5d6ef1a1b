package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a snapshot row
	// whose key already exists. Snapshot stores are append-only and do not
	// allow updates.
	ErrDuplicateKey = errors.New("duplicate key: snapshot stores are append-only")

	// ErrConflict is returned when a commit loses a write race (e.g. a
	// serialization failure under concurrent workers). Commits are
	// idempotent upserts, so callers retry on this error.
	ErrConflict = errors.New("persistence conflict")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
