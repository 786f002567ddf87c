package storage

import "errors"

// Repository errors. The medscribe facade translates these into the core
// error taxonomy before they reach a caller.
var (
	// ErrNotFound indicates that no knowledge record or report has the key.
	ErrNotFound = errors.New("storage: not found")

	// ErrDuplicateKey indicates a report id that is already stored.
	// Reports are insert-once.
	ErrDuplicateKey = errors.New("storage: duplicate key")

	// ErrStorageClosed indicates that the badger backend has been closed.
	ErrStorageClosed = errors.New("storage: closed")

	// ErrSerializationFailed indicates a value that could not be decoded.
	ErrSerializationFailed = errors.New("storage: serialization failed")

	// ErrTruncatedData indicates a value shorter than its encoding claims.
	ErrTruncatedData = errors.New("storage: truncated data")

	// ErrTrailingData indicates bytes left over after a value was decoded.
	ErrTrailingData = errors.New("storage: trailing data")
)
