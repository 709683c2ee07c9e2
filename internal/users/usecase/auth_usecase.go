package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"userdb/internal/shared/eventbus"
	"userdb/internal/shared/logger"
	"userdb/internal/users/config"
	"userdb/internal/users/domain/model"
	"userdb/internal/users/domain/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

var (
	hasUpperRegex   = regexp.MustCompile(`[A-Z]`)
	hasLowerRegex   = regexp.MustCompile(`[a-z]`)
	hasNumberRegex  = regexp.MustCompile(`[0-9]`)
	hasSpecialRegex = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// AuthUsecaseInterface defines the contract for authentication use cases.
type AuthUsecaseInterface interface {
	Register(ctx context.Context, req RegisterRequest) (*model.User, string, error)
	Login(ctx context.Context, req LoginRequest) (*model.User, string, error)
	Logout(ctx context.Context, tokenString string) error
	ValidateToken(ctx context.Context, tokenString string) (*repository.Claims, error)
	GetUserFromToken(ctx context.Context, tokenString string) (*model.User, error)
}

// RegisterRequest represents the registration request
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      *int   `json:"age,omitempty"`
}

// LoginRequest represents the login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthUsecase implements the authentication logic.
type AuthUsecase struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	tokenSvc repository.TokenService
	bus      eventbus.Bus
	config   *config.Config
	log      logger.Logger
}

// NewAuthUsecase creates a new instance of AuthUsecase.
func NewAuthUsecase(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	tokenSvc repository.TokenService,
	bus eventbus.Bus,
	cfg *config.Config,
	log logger.Logger,
) *AuthUsecase {
	if log == nil {
		log = logger.NewLogger()
	}
	return &AuthUsecase{
		users:    users,
		sessions: sessions,
		tokenSvc: tokenSvc,
		bus:      bus,
		config:   cfg,
		log:      log.WithComponent("auth_usecase"),
	}
}

func (uc *AuthUsecase) validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("password must be at most %d characters", maxPasswordLength)
	}

	if !hasUpperRegex.MatchString(password) ||
		!hasLowerRegex.MatchString(password) ||
		!hasNumberRegex.MatchString(password) ||
		!hasSpecialRegex.MatchString(password) {
		return ErrWeakPassword
	}

	return nil
}

// Register creates a credentialed user and opens a session
func (uc *AuthUsecase) Register(ctx context.Context, req RegisterRequest) (*model.User, string, error) {
	if err := uc.validatePassword(req.Password); err != nil {
		return nil, "", err
	}

	user := &model.User{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Age:       req.Age,
		Status:    model.StatusActive,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := user.ValidateFields(); err != nil {
		return nil, "", err
	}

	existing, err := uc.users.GetUserByEmail(ctx, user.Email)
	if err != nil && err != ErrUserNotFound {
		return nil, "", fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, "", ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hashedPassword)

	if err := uc.users.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := uc.openSession(ctx, user)
	if err != nil {
		return nil, "", err
	}

	uc.publishEvent(ctx, eventbus.EventTypeUserCreated, user)

	user.PasswordHash = ""
	return user, token, nil
}

// Login authenticates a user and opens a session
func (uc *AuthUsecase) Login(ctx context.Context, req LoginRequest) (*model.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := model.ValidateEmail(email); err != nil {
		return nil, "", err
	}

	user, err := uc.users.GetUserByEmail(ctx, email)
	if err != nil {
		if err == ErrUserNotFound {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	if !user.CanAuthenticate() {
		return nil, "", ErrAccountInactive
	}

	token, err := uc.openSession(ctx, user)
	if err != nil {
		return nil, "", err
	}

	uc.publishEvent(ctx, eventbus.EventTypeUserAuthenticated, user)

	user.PasswordHash = ""
	return user, token, nil
}

// Logout invalidates all sessions belonging to the token's user
func (uc *AuthUsecase) Logout(ctx context.Context, tokenString string) error {
	claims, err := uc.tokenSvc.ValidateToken(ctx, tokenString)
	if err != nil {
		return ErrTokenInvalid
	}

	if err := uc.sessions.DeleteUserSessions(ctx, claims.UserID); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}

	uc.publishEvent(ctx, eventbus.EventTypeUserLoggedOut, &model.User{ID: claims.UserID, Email: claims.Email})
	return nil
}

// ValidateToken validates a JWT string and checks the backing session still exists,
// so a logged-out token is rejected even before its expiry.
func (uc *AuthUsecase) ValidateToken(ctx context.Context, tokenString string) (*repository.Claims, error) {
	claims, err := uc.tokenSvc.ValidateToken(ctx, tokenString)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	if claims.SessionID != "" {
		session, err := uc.sessions.GetSessionByID(ctx, claims.SessionID)
		if err != nil {
			return nil, ErrTokenInvalid
		}
		if session.IsExpired() {
			return nil, ErrTokenInvalid
		}
	}

	return claims, nil
}

// GetUserFromToken validates a token and fetches the associated user
func (uc *AuthUsecase) GetUserFromToken(ctx context.Context, tokenString string) (*model.User, error) {
	claims, err := uc.ValidateToken(ctx, tokenString)
	if err != nil {
		return nil, err
	}

	user, err := uc.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	user.PasswordHash = ""
	return user, nil
}

func (uc *AuthUsecase) openSession(ctx context.Context, user *model.User) (string, error) {
	sessionID := uuid.New().String()

	token, err := uc.tokenSvc.GenerateToken(ctx, user.ID, user.Email, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	session := &model.Session{
		SessionID: sessionID,
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(uc.config.SessionTTL),
	}
	if err := uc.sessions.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	return token, nil
}

func (uc *AuthUsecase) publishEvent(ctx context.Context, eventType string, user *model.User) {
	if uc.bus == nil {
		return
	}
	uc.bus.PublishAndForget(ctx, eventbus.NewBasicEventWithSource(eventType, user, "auth_usecase"))
}

// Ensure AuthUsecase implements AuthUsecaseInterface
var _ AuthUsecaseInterface = (*AuthUsecase)(nil)
