package users

import (
	"context"
	"fmt"

	"userdb/internal/shared/eventbus"
	"userdb/internal/shared/logger"
	"userdb/internal/users/adapter/cache"
	usershttp "userdb/internal/users/adapter/http"
	"userdb/internal/users/adapter/persistence/mongodb"
	"userdb/internal/users/adapter/security"
	"userdb/internal/users/config"
	"userdb/internal/users/domain/repository"
	"userdb/internal/users/usecase"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo"
)

// Module bundles the user directory: repositories, usecases and HTTP handlers.
type Module struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	tokenSvc    repository.TokenService
	userUsecase usecase.UserUsecaseInterface
	authUsecase usecase.AuthUsecaseInterface
	userHandler *usershttp.UserHTTPHandler
	authHandler *usershttp.AuthHTTPHandler
	config      *config.Config
}

// NewModule wires the user directory module against the given database.
func NewModule(ctx context.Context, db *mongo.Database, cfg *config.Config, bus eventbus.Bus, log logger.Logger) (*Module, error) {
	mongoUserRepo, err := mongodb.NewMongoUserRepository(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to create user repository: %w", err)
	}
	userRepo := cache.NewCachedUserRepository(mongoUserRepo, cfg.UserCacheTTL)

	sessionRepo, err := mongodb.NewMongoSessionRepository(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to create session repository: %w", err)
	}

	tokenSvc, err := security.NewJWTokenService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	userUsecase := usecase.NewUserUsecase(userRepo, sessionRepo, bus, cfg, log)
	authUsecase := usecase.NewAuthUsecase(userRepo, sessionRepo, tokenSvc, bus, cfg, log)

	userHandler := usershttp.NewUserHTTPHandler(userUsecase)
	authHandler := usershttp.NewAuthHTTPHandler(
		authUsecase,
		cfg.CookieName,
		cfg.CookiePath,
		cfg.CookieDomain,
		int(cfg.AccessTokenTTL.Seconds()),
		cfg.CookieSecure,
		cfg.CookieHTTPOnly,
		cfg.CookieSameSite,
	)

	return &Module{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		tokenSvc:    tokenSvc,
		userUsecase: userUsecase,
		authUsecase: authUsecase,
		userHandler: userHandler,
		authHandler: authHandler,
		config:      cfg,
	}, nil
}

// RegisterRoutes registers the module routes with the provided router
func (m *Module) RegisterRoutes(router fiber.Router) {
	middleware := m.Middleware()

	api := router.Group("/api")
	m.userHandler.SetupUserRoutes(api.Group("/users"))
	m.authHandler.SetupAuthRoutesWithMiddleware(api.Group("/auth"), middleware)
}

// Middleware returns the auth middleware bound to this module's usecase
func (m *Module) Middleware() *usershttp.AuthMiddleware {
	return usershttp.NewAuthMiddleware(m.authUsecase, m.config.CookieName)
}

// UserUsecase returns the user usecase for external access
func (m *Module) UserUsecase() usecase.UserUsecaseInterface {
	return m.userUsecase
}

// AuthUsecase returns the auth usecase for external access
func (m *Module) AuthUsecase() usecase.AuthUsecaseInterface {
	return m.authUsecase
}
