package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "userdb/internal/shared/errors"
	"userdb/internal/shared/eventbus"
	"userdb/internal/shared/logger"
	"userdb/internal/users/config"
	"userdb/internal/users/domain/model"
	"userdb/internal/users/domain/repository"

	"github.com/google/uuid"
)

var (
	ErrEmailTaken         = errors.New("email is already taken")
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is not active")
	ErrTokenInvalid       = errors.New("token is invalid")
	ErrWeakPassword       = errors.New("password does not meet strength requirements")
)

// UserUsecaseInterface defines the contract for user directory use cases.
type UserUsecaseInterface interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*model.User, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
	UpdateUser(ctx context.Context, userID string, req UpdateUserRequest) (*model.User, error)
	DeleteUser(ctx context.Context, userID string) error
	ListUsers(ctx context.Context, req ListUsersRequest) (*ListUsersResponse, error)
}

// CreateUserRequest represents a user creation request
type CreateUserRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Age    *int   `json:"age,omitempty"`
	Status string `json:"status,omitempty"`
}

// UpdateUserRequest represents a partial user update; nil fields are left untouched
type UpdateUserRequest struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Age    *int    `json:"age,omitempty"`
	Status *string `json:"status,omitempty"`
}

// ListUsersRequest represents a paginated listing request
type ListUsersRequest struct {
	Page   int
	Limit  int
	Status string
}

// PaginationInfo describes the page window of a listing response
type PaginationInfo struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// ListUsersResponse carries a page of users plus pagination metadata
type ListUsersResponse struct {
	Users      []*model.User  `json:"users"`
	Pagination PaginationInfo `json:"pagination"`
}

// UserUsecase implements the user directory logic.
type UserUsecase struct {
	repo     repository.UserRepository
	sessions repository.SessionRepository
	bus      eventbus.Bus
	config   *config.Config
	log      logger.Logger
}

// NewUserUsecase creates a new instance of UserUsecase.
func NewUserUsecase(
	repo repository.UserRepository,
	sessions repository.SessionRepository,
	bus eventbus.Bus,
	cfg *config.Config,
	log logger.Logger,
) *UserUsecase {
	if log == nil {
		log = logger.NewLogger()
	}
	return &UserUsecase{
		repo:     repo,
		sessions: sessions,
		bus:      bus,
		config:   cfg,
		log:      log.WithComponent("user_usecase"),
	}
}

// CreateUser creates a new user after validating fields and email uniqueness
func (uc *UserUsecase) CreateUser(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	status := model.UserStatus(req.Status)
	if req.Status == "" {
		status = model.StatusActive
	}

	user := &model.User{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Age:       req.Age,
		Status:    status,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := user.ValidateFields(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	// The unique index is the source of truth; this pre-check just gives a
	// cleaner error on the common path.
	existing, err := uc.repo.GetUserByEmail(ctx, user.Email)
	if err != nil && err != ErrUserNotFound {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	if err := uc.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	uc.log.WithFields(map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User created")

	uc.publishEvent(ctx, eventbus.EventTypeUserCreated, user)
	return user, nil
}

// GetUser retrieves a user by ID
func (uc *UserUsecase) GetUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	return uc.repo.GetUserByID(ctx, userID)
}

// UpdateUser applies a partial update; only provided fields change
func (uc *UserUsecase) UpdateUser(ctx context.Context, userID string, req UpdateUserRequest) (*model.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	set := map[string]interface{}{}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || len(name) > 100 {
			return nil, apperrors.NewValidationError("name must be between 1 and 100 characters")
		}
		set["name"] = name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if err := model.ValidateEmail(email); err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
		set["email"] = email
	}
	if req.Age != nil {
		if *req.Age < 0 || *req.Age > 150 {
			return nil, apperrors.NewValidationError("age must be between 0 and 150")
		}
		set["age"] = *req.Age
	}
	if req.Status != nil {
		status := model.UserStatus(*req.Status)
		if !model.IsValidStatus(status) {
			return nil, apperrors.NewValidationError("status must be one of active, inactive, suspended")
		}
		set["status"] = status
	}

	user, err := uc.repo.UpdateUser(ctx, userID, set)
	if err != nil {
		return nil, err
	}

	uc.log.WithFields(map[string]interface{}{"user_id": userID}).Info("User updated")
	uc.publishEvent(ctx, eventbus.EventTypeUserUpdated, user)
	return user, nil
}

// DeleteUser removes a user and revokes all of their sessions
func (uc *UserUsecase) DeleteUser(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}

	user, err := uc.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := uc.repo.DeleteUser(ctx, userID); err != nil {
		return err
	}

	if uc.sessions != nil {
		if err := uc.sessions.DeleteUserSessions(ctx, userID); err != nil {
			uc.log.WithFields(map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			}).Warn("Failed to delete user sessions")
		}
	}

	uc.log.WithFields(map[string]interface{}{"user_id": userID}).Info("User deleted")
	uc.publishEvent(ctx, eventbus.EventTypeUserDeleted, user)
	return nil
}

// ListUsers returns a validated, clamped page of users
func (uc *UserUsecase) ListUsers(ctx context.Context, req ListUsersRequest) (*ListUsersResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	// Zero means the caller did not supply a limit; everything else outside
	// 1..MaxPageSize is a client error, not something to silently clamp.
	limit := req.Limit
	if limit == 0 {
		limit = uc.config.DefaultPageSize
	}
	if limit < 1 || limit > uc.config.MaxPageSize {
		return nil, apperrors.NewValidationError(fmt.Sprintf("limit must be between 1 and %d", uc.config.MaxPageSize))
	}

	status := model.UserStatus(req.Status)
	if req.Status != "" && !model.IsValidStatus(status) {
		return nil, apperrors.NewValidationError("status must be one of active, inactive, suspended")
	}

	filter := repository.ListFilter{
		Status: status,
		Skip:   int64(page-1) * int64(limit),
		Limit:  int64(limit),
	}

	users, err := uc.repo.ListUsers(ctx, filter)
	if err != nil {
		return nil, err
	}

	total, err := uc.repo.CountUsers(ctx, status)
	if err != nil {
		return nil, err
	}

	pages := (total + int64(limit) - 1) / int64(limit)

	return &ListUsersResponse{
		Users: users,
		Pagination: PaginationInfo{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	}, nil
}

func (uc *UserUsecase) publishEvent(ctx context.Context, eventType string, user *model.User) {
	if uc.bus == nil {
		return
	}
	uc.bus.PublishAndForget(ctx, eventbus.NewBasicEventWithSource(eventType, user, "user_usecase"))
}

// Ensure UserUsecase implements UserUsecaseInterface
var _ UserUsecaseInterface = (*UserUsecase)(nil)
