package errors

import (
	"errors"
	"fmt"
)

// Common error types for the auth client
var (
	// Credential errors (surfaced to the user, never retried)
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidation         = errors.New("validation failed")
	ErrUserExists         = errors.New("user already registered")

	// Token errors
	ErrUnauthorized   = errors.New("unauthorized")
	ErrRefreshInvalid = errors.New("invalid refresh token")

	// Transport errors
	ErrNetwork = errors.New("network error")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
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
