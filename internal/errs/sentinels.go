// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service/transport layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a unique constraint violation (e.g., username taken).
	ErrConflict = errors.New("already exists")

	// ErrValidation indicates malformed input the caller can correct.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials indicates a failed login. Deliberately coarse:
	// unknown username and wrong password produce the same value.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidToken indicates a missing, malformed, tampered or expired token.
	// Expiry is intentionally not distinguished from corruption.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrUnauthorized indicates a request without usable credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated request lacking privileges.
	ErrForbidden = errors.New("forbidden")

	// ErrHashing indicates an internal password-hashing failure. Never
	// surfaced to the caller as a credential-match signal.
	ErrHashing = errors.New("hashing failure")

	// ErrStorage indicates a persistence failure in the account store.
	ErrStorage = errors.New("storage failure")
)
