package model

import "errors"

// Sentinel errors shared by the store, the server and the clients. Transport
// layers map them to status codes and back.
var (
	// ErrNotFound means the preset does not exist, is soft-deleted, or is
	// private to someone else.
	ErrNotFound = errors.New("preset not found")

	// ErrPermissionDenied means a non-owner attempted an owner-only mutation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnauthenticated means the call needs a caller identity and none
	// (or an invalid one) was presented.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrRateLimited means the caller exceeded the reaction toggle rate.
	ErrRateLimited = errors.New("too many reactions, slow down")

	// ErrTransient marks network or storage failures. Callers may retry
	// explicitly; nothing in this module retries a toggle on its own.
	ErrTransient = errors.New("temporarily unavailable")
)

type transientError struct {
	err error
}

func (e *transientError) Error() string { return "temporarily unavailable: " + e.err.Error() }

func (e *transientError) Unwrap() []error { return []error{ErrTransient, e.err} }

// Transient wraps err so that errors.Is(err, ErrTransient) holds while the
// original cause stays reachable.
func Transient(err error) error {
	if err == nil || errors.Is(err, ErrTransient) {
		return err
	}
	return &transientError{err: err}
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
