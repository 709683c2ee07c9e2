package cache

import (
	"context"
	"time"

	"userdb/internal/users/domain/model"
	"userdb/internal/users/domain/repository"

	gocache "github.com/patrickmn/go-cache"
)

// CachedUserRepository decorates a UserRepository with a short-lived
// read-through cache for single-user lookups. Listings and counts always go
// to the database; writes invalidate the affected entries.
type CachedUserRepository struct {
	inner repository.UserRepository
	store *gocache.Cache
}

// NewCachedUserRepository wraps repo with a TTL cache.
func NewCachedUserRepository(inner repository.UserRepository, ttl time.Duration) *CachedUserRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedUserRepository{
		inner: inner,
		store: gocache.New(ttl, 2*ttl),
	}
}

func idKey(id string) string       { return "id:" + id }
func emailKey(email string) string { return "email:" + email }

// CreateUser delegates and primes the cache with the created user.
func (r *CachedUserRepository) CreateUser(ctx context.Context, user *model.User) error {
	if err := r.inner.CreateUser(ctx, user); err != nil {
		return err
	}
	r.put(user)
	return nil
}

// GetUserByID serves from cache when possible.
func (r *CachedUserRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if v, ok := r.store.Get(idKey(id)); ok {
		return copyUser(v.(*model.User)), nil
	}

	user, err := r.inner.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.put(user)
	return copyUser(user), nil
}

// GetUserByEmail serves from cache when possible.
func (r *CachedUserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if v, ok := r.store.Get(emailKey(email)); ok {
		return copyUser(v.(*model.User)), nil
	}

	user, err := r.inner.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	r.put(user)
	return copyUser(user), nil
}

// UpdateUser delegates and refreshes the cached entries.
func (r *CachedUserRepository) UpdateUser(ctx context.Context, id string, set map[string]interface{}) (*model.User, error) {
	// Drop the stale entry first so a failed update cannot resurrect it.
	r.invalidate(id)

	user, err := r.inner.UpdateUser(ctx, id, set)
	if err != nil {
		return nil, err
	}
	r.put(user)
	return copyUser(user), nil
}

// DeleteUser delegates and drops the cached entries.
func (r *CachedUserRepository) DeleteUser(ctx context.Context, id string) error {
	r.invalidate(id)
	return r.inner.DeleteUser(ctx, id)
}

// ListUsers always hits the database.
func (r *CachedUserRepository) ListUsers(ctx context.Context, filter repository.ListFilter) ([]*model.User, error) {
	return r.inner.ListUsers(ctx, filter)
}

// CountUsers always hits the database.
func (r *CachedUserRepository) CountUsers(ctx context.Context, status model.UserStatus) (int64, error) {
	return r.inner.CountUsers(ctx, status)
}

func (r *CachedUserRepository) put(user *model.User) {
	cached := copyUser(user)
	r.store.SetDefault(idKey(cached.ID), cached)
	r.store.SetDefault(emailKey(cached.Email), cached)
}

func (r *CachedUserRepository) invalidate(id string) {
	if v, ok := r.store.Get(idKey(id)); ok {
		r.store.Delete(emailKey(v.(*model.User).Email))
	}
	r.store.Delete(idKey(id))
}

// copyUser returns a shallow copy so callers cannot mutate cached state.
func copyUser(u *model.User) *model.User {
	c := *u
	if u.Age != nil {
		age := *u.Age
		c.Age = &age
	}
	return &c
}

// Ensure CachedUserRepository implements UserRepository
var _ repository.UserRepository = (*CachedUserRepository)(nil)
