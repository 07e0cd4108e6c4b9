package storage

import "errors"

// Sentinel errors returned by the store. Callers branch on these with
// errors.Is; everything else is an I/O failure wrapped with context.
var (
	// ErrNotFound is returned when a referenced card or deck does not
	// exist (possibly deleted concurrently).
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write carries a stale version
	// stamp: the record changed since the caller last read it.
	ErrConflict = errors.New("version conflict")

	// ErrDuplicate is returned when a unique constraint would be
	// violated, e.g. creating a deck whose name is already taken.
	ErrDuplicate = errors.New("already exists")

	// ErrInvalidInput is returned for malformed input rejected before
	// any state is touched.
	ErrInvalidInput = errors.New("invalid input")
)

// IsRetryable reports whether the caller can recover by re-reading
// state and trying again. I/O failures are deliberately excluded:
// retry policy for those belongs to the caller.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
