package users

import "context"

// Repository is the persistence contract for user records.
//
// Create must enforce login id uniqueness atomically and return
// ErrDuplicateLogin on violation. FindByLogin returns ErrNotFound when no
// record exists.
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByLogin(ctx context.Context, loginID string) (*User, error)
}
