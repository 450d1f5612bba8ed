// Package users implements the credential store: a durable mapping from
// login id to user record with store-enforced login uniqueness.
package users

import (
	"errors"
	"time"
)

// User is an account record. Created once at registration and immutable
// afterwards; PasswordHash carries its own per-record salt (bcrypt format)
// and a cleartext password is never stored.
type User struct {
	ID           string
	LoginID      string
	PasswordHash string
	Name         string
	Nickname     string
	IsAdmin      bool
	CreatedAt    time.Time
}

var (
	// ErrNotFound is returned when no user exists for a login id.
	ErrNotFound = errors.New("user not found")

	// ErrDuplicateLogin is returned when a create would violate the
	// uniqueness of login ids. The store itself enforces the constraint so
	// concurrent registrations cannot race past an application-level check.
	ErrDuplicateLogin = errors.New("login id already taken")
)
