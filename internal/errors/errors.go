package errors

import (
	"errors"
	"fmt"
)

// Common error kinds for the auth broker and client coordinator
var (
	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	// Callback errors
	ErrCsrfMismatch = errors.New("state parameter mismatch")

	// Flow errors
	ErrTimeout   = errors.New("authorization timed out")
	ErrCancelled = errors.New("authorization cancelled")

	// Configuration errors
	ErrConfig = errors.New("invalid configuration")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
