// Package storeerr defines the error taxonomy shared by the event log, the
// root registry and the records facade. Callers match with errors.Is.
package storeerr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: the referenced root does not exist. Not retried.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey: an append collided with an existing (root, timestamp, event id) key.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrInvalidKey: a partition or clustering component is missing or malformed.
	ErrInvalidKey = errors.New("invalid key")
	// ErrInvalidArgument: a malformed request payload.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrFailedPrecondition: the operation conflicts with current state,
	// e.g. deleting a root that still has events without cascade.
	ErrFailedPrecondition = errors.New("failed precondition")
	// ErrStorageUnavailable: transient storage failure; safe to retry with backoff.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Retryable reports whether err is transient.
func Retryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// Unavailable wraps a storage error so it matches ErrStorageUnavailable while
// keeping the cause inspectable.
func Unavailable(op string, cause error) error {
	if cause == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, cause)
}

// InvalidKey returns an ErrInvalidKey with detail.
func InvalidKey(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidKey, fmt.Sprintf(format, args...))
}

// InvalidArgument returns an ErrInvalidArgument with detail.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
