// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// authorization evaluator to distinguish between different failure
// scenarios without depending on driver-specific errors.
package repository

import "errors"

// ErrUserNotFound is returned when no user record exists for the
// requested Spotify id. The evaluator translates this into a
// needs-login rejection.
var ErrUserNotFound = errors.New("user not found")
