package cache_test

import (
	"context"
	"testing"
	"time"

	"userdb/internal/users/adapter/cache"
	"userdb/internal/users/domain/model"
	"userdb/internal/users/domain/repository"
	"userdb/internal/users/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRepo is an in-memory UserRepository that counts database hits.
type countingRepo struct {
	users map[string]*model.User
	gets  int
}

func newCountingRepo() *countingRepo {
	return &countingRepo{users: make(map[string]*model.User)}
}

func (r *countingRepo) CreateUser(ctx context.Context, user *model.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *countingRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	r.gets++
	user, ok := r.users[id]
	if !ok {
		return nil, usecase.ErrUserNotFound
	}
	return user, nil
}

func (r *countingRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	r.gets++
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, usecase.ErrUserNotFound
}

func (r *countingRepo) UpdateUser(ctx context.Context, id string, set map[string]interface{}) (*model.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, usecase.ErrUserNotFound
	}
	if name, ok := set["name"].(string); ok {
		user.Name = name
	}
	return user, nil
}

func (r *countingRepo) DeleteUser(ctx context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return usecase.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *countingRepo) ListUsers(ctx context.Context, filter repository.ListFilter) ([]*model.User, error) {
	var out []*model.User
	for _, user := range r.users {
		out = append(out, user)
	}
	return out, nil
}

func (r *countingRepo) CountUsers(ctx context.Context, status model.UserStatus) (int64, error) {
	return int64(len(r.users)), nil
}

func seedUser(repo *countingRepo) *model.User {
	user := &model.User{ID: "user-1", Name: "Alice", Email: "alice@example.com", Status: model.StatusActive}
	repo.users[user.ID] = user
	return user
}

func TestGetUserByID_SecondReadServedFromCache(t *testing.T) {
	ctx := context.Background()
	repo := newCountingRepo()
	seedUser(repo)
	cached := cache.NewCachedUserRepository(repo, time.Minute)

	first, err := cached.GetUserByID(ctx, "user-1")
	require.NoError(t, err)
	second, err := cached.GetUserByID(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, repo.gets)
}

func TestGetUserByEmail_PrimedByIDLookup(t *testing.T) {
	ctx := context.Background()
	repo := newCountingRepo()
	seedUser(repo)
	cached := cache.NewCachedUserRepository(repo, time.Minute)

	_, err := cached.GetUserByID(ctx, "user-1")
	require.NoError(t, err)

	user, err := cached.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, 1, repo.gets)
}

func TestGetUserByID_CachedCopyIsIsolated(t *testing.T) {
	ctx := context.Background()
	repo := newCountingRepo()
	seedUser(repo)
	cached := cache.NewCachedUserRepository(repo, time.Minute)

	first, err := cached.GetUserByID(ctx, "user-1")
	require.NoError(t, err)
	first.Name = "mutated"

	second, err := cached.GetUserByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", second.Name)
}

func TestUpdateUser_RefreshesCache(t *testing.T) {
	ctx := context.Background()
	repo := newCountingRepo()
	seedUser(repo)
	cached := cache.NewCachedUserRepository(repo, time.Minute)

	_, err := cached.GetUserByID(ctx, "user-1")
	require.NoError(t, err)

	_, err = cached.UpdateUser(ctx, "user-1", map[string]interface{}{"name": "Bob"})
	require.NoError(t, err)

	user, err := cached.GetUserByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Bob", user.Name)
	// The update primed the cache, so no extra database read happened
	assert.Equal(t, 1, repo.gets)
}

func TestDeleteUser_InvalidatesCache(t *testing.T) {
	ctx := context.Background()
	repo := newCountingRepo()
	seedUser(repo)
	cached := cache.NewCachedUserRepository(repo, time.Minute)

	_, err := cached.GetUserByID(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, cached.DeleteUser(ctx, "user-1"))

	_, err = cached.GetUserByID(ctx, "user-1")
	assert.ErrorIs(t, err, usecase.ErrUserNotFound)

	_, err = cached.GetUserByEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, usecase.ErrUserNotFound)
}

func TestGetUserByID_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	repo := newCountingRepo()
	cached := cache.NewCachedUserRepository(repo, time.Minute)

	_, err := cached.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, usecase.ErrUserNotFound)

	seedUser(repo)
	user, err := cached.GetUserByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
}
