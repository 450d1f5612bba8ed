package users

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepositoryCreateAndFind(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	user := &User{
		ID:           "id-1",
		LoginID:      "alice1",
		PasswordHash: "$2a$04$fakehash",
		Name:         "Alice",
		Nickname:     "allie",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, user))

	found, err := repo.FindByLogin(ctx, "alice1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, user.Nickname, found.Nickname)

	// Returned record is a copy; mutating it must not leak into the store.
	found.Nickname = "changed"
	again, err := repo.FindByLogin(ctx, "alice1")
	require.NoError(t, err)
	assert.Equal(t, "allie", again.Nickname)
}

func TestMemoryRepositoryNotFound(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.FindByLogin(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepositoryDuplicateLogin(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &User{ID: "a", LoginID: "alice1"}))
	err := repo.Create(ctx, &User{ID: "b", LoginID: "alice1"})
	require.ErrorIs(t, err, ErrDuplicateLogin)

	found, err := repo.FindByLogin(ctx, "alice1")
	require.NoError(t, err)
	assert.Equal(t, "a", found.ID, "losing create must not overwrite the stored record")
}

func TestMemoryRepositoryConcurrentCreate(t *testing.T) {
	repo := NewMemoryRepository()

	const attempts = 16
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(context.Background(), &User{ID: "x", LoginID: "alice1"})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		}
	}
	assert.Equal(t, 1, successes)
}
