package users

import (
	"context"
	"sync"
)

// MemoryRepository keeps users in process memory. It backs the explicit
// non-persistent mode (no database configured) and the tests. The single
// mutex makes create-if-absent atomic, matching the uniqueness guarantee of
// the SQL constraint.
type MemoryRepository struct {
	mu      sync.Mutex
	byLogin map[string]*User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byLogin: make(map[string]*User)}
}

func (r *MemoryRepository) Create(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byLogin[user.LoginID]; exists {
		return ErrDuplicateLogin
	}

	stored := *user
	r.byLogin[user.LoginID] = &stored
	return nil
}

func (r *MemoryRepository) FindByLogin(_ context.Context, loginID string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.byLogin[loginID]
	if !exists {
		return nil, ErrNotFound
	}

	found := *user
	return &found, nil
}
