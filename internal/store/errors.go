package store

import "errors"

// Error taxonomy for the storage engine. Callers match with errors.Is; the
// store wraps these with the operation and entity ID where context is known.
var (
	// ErrNotFound is returned by Update and Delete paths that require the
	// target to exist. Get and List report absence as nil/empty instead.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned by Create when the ID is already indexed.
	ErrAlreadyExists = errors.New("already exists")

	// ErrLockTimeout means a path lock could not be acquired within the
	// configured wait. Retryable: back off and try again.
	ErrLockTimeout = errors.New("lock timeout")

	// ErrCorrupt means an index or entity file exists but fails to decode,
	// or an index references a body that is gone. Surfaced, never skipped.
	ErrCorrupt = errors.New("corrupt storage state")
)
