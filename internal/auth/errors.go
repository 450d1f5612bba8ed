package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrLoginTaken reports a registration attempt with a login id that is
	// already in use.
	ErrLoginTaken = errors.New("login id already taken")

	// ErrInvalidCredentials covers both an unknown login id and a wrong
	// password. Callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid login or password")
)

// ValidationError reports malformed registration input. It is returned
// before any storage access happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
