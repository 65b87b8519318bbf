package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrUnauthenticated indicates the media server rejected or never issued a session token
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
