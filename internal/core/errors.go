package core

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the referenced request, invitation or enrolled
// identity does not exist in current state.
var ErrNotFound = errors.New("not found")

// ErrInvalidState indicates an entity is missing fields required to act on it.
var ErrInvalidState = errors.New("invalid state")

// ValidationError rejects missing or empty required identifiers before any
// outbound call is made.
type ValidationError struct {
	Field string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// UpstreamError is a non-success response from the identity-management or
// email API after the single allowed retry.
type UpstreamError struct {
	// Op names the failed operation, e.g. "pingone.users".
	Op string

	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream returned %d: %s", e.Op, e.Status, e.Body)
}

// AuthError indicates the client-credentials grant itself failed or returned
// an unparsable payload.
type AuthError struct {
	Wrapped error
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Wrapped.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Wrapped
}
