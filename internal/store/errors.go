package store

import "errors"

// Errors returned by Store implementations. Implementations wrap them, so
// callers match with errors.Is. Any other error is an unexpected storage
// failure.
var (
	// ErrNotFound means no row matched, or a parent row was missing on insert.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists means a unique constraint rejected the write.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotEmpty means a foreign key rejected deleting a row with children.
	ErrNotEmpty = errors.New("not empty")
)
