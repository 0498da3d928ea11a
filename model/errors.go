// File: model/errors.go
package model

import "errors"

// Registry error taxonomy. Every operation failure wraps exactly one of
// these sentinels so callers can branch with errors.Is. All of them are
// normal, expected outcomes; none is retried or swallowed internally, and a
// failed call never partially applies its writes.
var (
	// ErrNotFound is returned on any lookup miss (domain, report, review).
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the caller is not the owner of the
	// resource being mutated.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyRegistered is returned when a domain name is taken.
	ErrAlreadyRegistered = errors.New("domain already registered")

	// ErrAlreadyReviewed is returned on a second review from the same
	// reviewer for the same domain.
	ErrAlreadyReviewed = errors.New("domain already reviewed by caller")

	// ErrAlreadyReported is returned on a second report from the same
	// reporter for the same domain.
	ErrAlreadyReported = errors.New("domain already reported by caller")

	// ErrAlreadyResolved is returned when resolving a resolved report.
	ErrAlreadyResolved = errors.New("report already resolved")

	// ErrInvalidData is returned for empty or malformed input.
	ErrInvalidData = errors.New("invalid data")

	// ErrInvalidUser is returned when a role-assignment target fails
	// validation (empty, malformed, or the caller itself).
	ErrInvalidUser = errors.New("invalid user")

	// ErrVerificationFailed is returned when an ownership proof token does
	// not match the expected challenge.
	ErrVerificationFailed = errors.New("ownership verification failed")

	// ErrRatingOutOfBounds is returned for review ratings outside [-5, 5].
	ErrRatingOutOfBounds = errors.New("rating out of bounds")

	// ErrNoPermission is returned when the caller lacks the required role.
	ErrNoPermission = errors.New("no permission")

	// ErrNotInDispute is returned when resolution is attempted against a
	// report that does not exist.
	ErrNotInDispute = errors.New("report not in dispute")
)
