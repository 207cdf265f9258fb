package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// ErrPolicyNotFound is returned when a directory policy does not exist.
	ErrPolicyNotFound = errors.New("policy not found")
	// ErrStoreUnavailable wraps backend connectivity failures.
	ErrStoreUnavailable = errors.New("policy store unavailable")
)
