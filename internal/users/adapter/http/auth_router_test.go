package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	usershttp "userdb/internal/users/adapter/http"
	"userdb/internal/users/domain/model"
	"userdb/internal/users/domain/repository"
	"userdb/internal/users/usecase"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// Mock auth usecase
type mockAuthUsecase struct {
	mock.Mock
}

func (m *mockAuthUsecase) Register(ctx context.Context, req usecase.RegisterRequest) (*model.User, string, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*model.User), args.String(1), args.Error(2)
}

func (m *mockAuthUsecase) Login(ctx context.Context, req usecase.LoginRequest) (*model.User, string, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*model.User), args.String(1), args.Error(2)
}

func (m *mockAuthUsecase) Logout(ctx context.Context, tokenString string) error {
	args := m.Called(ctx, tokenString)
	return args.Error(0)
}

func (m *mockAuthUsecase) ValidateToken(ctx context.Context, tokenString string) (*repository.Claims, error) {
	args := m.Called(ctx, tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Claims), args.Error(1)
}

func (m *mockAuthUsecase) GetUserFromToken(ctx context.Context, tokenString string) (*model.User, error) {
	args := m.Called(ctx, tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type AuthRouterTestSuite struct {
	suite.Suite
	app    *fiber.App
	mockUC *mockAuthUsecase
}

func (suite *AuthRouterTestSuite) SetupTest() {
	suite.mockUC = &mockAuthUsecase{}

	handler := usershttp.NewAuthHTTPHandler(
		suite.mockUC,
		"userdb_token", "/", "",
		3600,
		false, true, "Lax",
	)
	middleware := usershttp.NewAuthMiddleware(suite.mockUC, "userdb_token")

	suite.app = fiber.New()
	handler.SetupAuthRoutesWithMiddleware(suite.app.Group("/api/auth"), middleware)
}

func (suite *AuthRouterTestSuite) TestRegister_Success() {
	user := &model.User{ID: "user-1", Name: "Alice", Email: "alice@example.com", Status: model.StatusActive}
	suite.mockUC.On("Register", mock.Anything, mock.MatchedBy(func(req usecase.RegisterRequest) bool {
		return req.Email == "alice@example.com" && req.Password == "Password123!"
	})).Return(user, "jwt-token", nil)

	body, _ := json.Marshal(map[string]string{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "Password123!",
	})
	req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := suite.app.Test(req)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), fiber.StatusCreated, resp.StatusCode)

	var result usershttp.AuthResponse
	require.NoError(suite.T(), json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(suite.T(), "jwt-token", result.Token)
	assert.Equal(suite.T(), "user-1", result.User.ID)

	// The session cookie is set on registration
	cookies := resp.Cookies()
	require.NotEmpty(suite.T(), cookies)
	assert.Equal(suite.T(), "userdb_token", cookies[0].Name)
	assert.Equal(suite.T(), "jwt-token", cookies[0].Value)
}

func (suite *AuthRouterTestSuite) TestRegister_EmailTaken() {
	suite.mockUC.On("Register", mock.Anything, mock.Anything).Return(nil, "", usecase.ErrEmailTaken)

	body, _ := json.Marshal(map[string]string{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "Password123!",
	})
	req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := suite.app.Test(req)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), fiber.StatusConflict, resp.StatusCode)
}

func (suite *AuthRouterTestSuite) TestLogin_Success() {
	user := &model.User{ID: "user-1", Email: "alice@example.com", Status: model.StatusActive}
	suite.mockUC.On("Login", mock.Anything, usecase.LoginRequest{
		Email:    "alice@example.com",
		Password: "Password123!",
	}).Return(user, "jwt-token", nil)

	body, _ := json.Marshal(map[string]string{
		"email":    "alice@example.com",
		"password": "Password123!",
	})
	req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := suite.app.Test(req)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), fiber.StatusOK, resp.StatusCode)
}

func (suite *AuthRouterTestSuite) TestLogin_InvalidCredentials() {
	suite.mockUC.On("Login", mock.Anything, mock.Anything).Return(nil, "", usecase.ErrInvalidCredentials)

	body, _ := json.Marshal(map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := suite.app.Test(req)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), fiber.StatusUnauthorized, resp.StatusCode)
}

func (suite *AuthRouterTestSuite) TestLogout_RequiresAuth() {
	req := httptest.NewRequest("POST", "/api/auth/logout", nil)

	resp, err := suite.app.Test(req)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), fiber.StatusUnauthorized, resp.StatusCode)
	suite.mockUC.AssertNotCalled(suite.T(), "Logout", mock.Anything, mock.Anything)
}

func (suite *AuthRouterTestSuite) TestLogout_Success() {
	claims := &repository.Claims{UserID: "user-1", Email: "alice@example.com", SessionID: "session-1"}
	suite.mockUC.On("ValidateToken", mock.Anything, "jwt-token").Return(claims, nil)
	suite.mockUC.On("Logout", mock.Anything, "jwt-token").Return(nil)

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer jwt-token")

	resp, err := suite.app.Test(req)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), fiber.StatusOK, resp.StatusCode)
	suite.mockUC.AssertExpectations(suite.T())
}

func (suite *AuthRouterTestSuite) TestGetCurrentUser_BearerToken() {
	claims := &repository.Claims{UserID: "user-1", Email: "alice@example.com", SessionID: "session-1"}
	user := &model.User{ID: "user-1", Email: "alice@example.com"}

	suite.mockUC.On("ValidateToken", mock.Anything, "jwt-token").Return(claims, nil)
	suite.mockUC.On("GetUserFromToken", mock.Anything, "jwt-token").Return(user, nil)

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer jwt-token")

	resp, err := suite.app.Test(req)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), fiber.StatusOK, resp.StatusCode)

	var result model.User
	require.NoError(suite.T(), json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(suite.T(), "user-1", result.ID)
}

func (suite *AuthRouterTestSuite) TestGetCurrentUser_CookieToken() {
	claims := &repository.Claims{UserID: "user-1", Email: "alice@example.com", SessionID: "session-1"}
	user := &model.User{ID: "user-1", Email: "alice@example.com"}

	suite.mockUC.On("ValidateToken", mock.Anything, "cookie-token").Return(claims, nil)
	suite.mockUC.On("GetUserFromToken", mock.Anything, "cookie-token").Return(user, nil)

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "userdb_token", Value: "cookie-token"})

	resp, err := suite.app.Test(req)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), fiber.StatusOK, resp.StatusCode)
}

func (suite *AuthRouterTestSuite) TestGetCurrentUser_InvalidToken() {
	suite.mockUC.On("ValidateToken", mock.Anything, "bad-token").Return(nil, usecase.ErrTokenInvalid)

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer bad-token")

	resp, err := suite.app.Test(req)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthRouterTestSuite(t *testing.T) {
	suite.Run(t, new(AuthRouterTestSuite))
}
