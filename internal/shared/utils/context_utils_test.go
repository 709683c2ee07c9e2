package utils_test

import (
	"context"
	"testing"

	"userdb/internal/shared/contextkeys"
	"userdb/internal/shared/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserIDRoundTrip(t *testing.T) {
	ctx := utils.WithUserID(context.Background(), "user-1")

	userID, err := utils.GetUserIDFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.True(t, utils.HasUserID(ctx))
}

func TestUserIDMissing(t *testing.T) {
	_, err := utils.GetUserIDFromContext(context.Background())
	assert.ErrorIs(t, err, utils.ErrUserIDNotFound)
	assert.False(t, utils.HasUserID(context.Background()))
}

func TestUserIDWrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), contextkeys.UserIDKey, 42)

	_, err := utils.GetUserIDFromContext(ctx)
	assert.ErrorIs(t, err, utils.ErrUserIDNotString)
}

func TestUserEmailRoundTrip(t *testing.T) {
	ctx := utils.WithUserEmail(context.Background(), "alice@example.com")

	email, err := utils.GetUserEmailFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)
}

func TestSessionIDRoundTrip(t *testing.T) {
	ctx := utils.WithSessionID(context.Background(), "session-1")

	sessionID, err := utils.GetSessionIDFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "session-1", sessionID)
	assert.True(t, utils.HasSessionID(ctx))

	assert.False(t, utils.HasSessionID(context.Background()))
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := utils.WithRequestID(context.Background(), "req-123")

	requestID, err := utils.GetRequestIDFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "req-123", requestID)
}

func TestOrDefaultGetters(t *testing.T) {
	empty := context.Background()
	assert.Equal(t, "anonymous", utils.GetUserIDOrDefault(empty, "anonymous"))
	assert.Equal(t, "none", utils.GetRequestIDOrDefault(empty, "none"))

	ctx := utils.WithUserID(utils.WithRequestID(empty, "req-123"), "user-1")
	assert.Equal(t, "user-1", utils.GetUserIDOrDefault(ctx, "anonymous"))
	assert.Equal(t, "req-123", utils.GetRequestIDOrDefault(ctx, "none"))
}

func TestContextValuesAreIndependent(t *testing.T) {
	ctx := utils.WithUserID(context.Background(), "user-1")
	ctx = utils.WithComponent(ctx, "usecase")
	ctx = utils.WithOperation(ctx, "create_user")

	// Adding component/operation must not disturb identity values
	userID, err := utils.GetUserIDFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	_, err = utils.GetSessionIDFromContext(ctx)
	assert.ErrorIs(t, err, utils.ErrSessionIDNotFound)
}
