package repository

import (
	"context"

	"userdb/internal/users/domain/model"
)

// ListFilter narrows and pages a user listing.
type ListFilter struct {
	Status model.UserStatus // empty means all
	Skip   int64
	Limit  int64
}

// UserRepository defines the interface for user document operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, id string, set map[string]interface{}) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context, filter ListFilter) ([]*model.User, error)
	CountUsers(ctx context.Context, status model.UserStatus) (int64, error)
}

// SessionRepository defines the interface for session persistence
type SessionRepository interface {
	CreateSession(ctx context.Context, session *model.Session) error
	GetSessionByID(ctx context.Context, sessionID string) (*model.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteUserSessions(ctx context.Context, userID string) error
}
