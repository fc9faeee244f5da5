package authapi

import (
	"fmt"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

// HTTPError is a non-2xx response from the auth backend. Kind carries the
// taxonomy sentinel for the status so callers can match with errors.Is, and
// Message carries the server's best-effort human-readable explanation.
type HTTPError struct {
	Status  int
	Message string // server-provided message, may be empty
	Kind    error
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s (status %d)", e.Kind, e.Status)
}

func (e *HTTPError) Unwrap() error {
	return e.Kind
}

// Message extracts a human-readable message from an auth backend error,
// preferring the server's message field and falling back to the provided
// generic message. Nil errors return the fallback unchanged.
func Message(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var he *HTTPError
	if apperrors.As(err, &he) && he.Message != "" {
		return he.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
