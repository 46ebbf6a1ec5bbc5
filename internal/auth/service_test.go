package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailflow/backend/internal/auth/jwt"
	"mailflow/backend/internal/storage/memory"
)

func newTestService() *Service {
	manager := jwt.NewManager(
		"test-secret-key-that-is-long-enough!",
		"mailflow-test",
		15*time.Minute,
		7*24*time.Hour,
	)
	return NewService(memory.NewStore(), manager)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService()

	result, err := svc.Register(RegisterInput{Email: "User@Example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", result.User.Email)
	assert.NotEmpty(t, result.User.ID)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	// 密码以 bcrypt 哈希存储
	assert.NotEqual(t, "password123", result.User.Password)

	login, err := svc.Login(LoginInput{Email: "user@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, login.User.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService()

	_, err := svc.Register(RegisterInput{Email: "dup@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Register(RegisterInput{Email: "dup@example.com", Password: "password456"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService()

	_, err := svc.Register(RegisterInput{Email: "not-an-email", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Register(RegisterInput{Email: "ok@example.com", Password: "short"})
	assert.Error(t, err)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService()

	_, err := svc.Register(RegisterInput{Email: "user@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Login(LoginInput{Email: "user@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownUser(t *testing.T) {
	svc := newTestService()

	_, err := svc.Login(LoginInput{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokenRoundTrip(t *testing.T) {
	manager := jwt.NewManager("test-secret-key-that-is-long-enough!", "mailflow-test", time.Minute, time.Hour)

	pair, err := manager.GenerateTokenPair("user-1", "user@example.com")
	require.NoError(t, err)

	claims, err := manager.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestValidateRejectsGarbage(t *testing.T) {
	manager := jwt.NewManager("test-secret-key-that-is-long-enough!", "mailflow-test", time.Minute, time.Hour)

	_, err := manager.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	manager := jwt.NewManager("test-secret-key-that-is-long-enough!", "mailflow-test", -time.Minute, time.Hour)

	pair, err := manager.GenerateTokenPair("user-1", "user@example.com")
	require.NoError(t, err)

	_, err = manager.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, jwt.ErrExpiredToken)
}

func TestRefreshAccessToken(t *testing.T) {
	manager := jwt.NewManager("test-secret-key-that-is-long-enough!", "mailflow-test", time.Minute, time.Hour)

	pair, err := manager.GenerateTokenPair("user-1", "user@example.com")
	require.NoError(t, err)

	access, err := manager.RefreshAccessToken(pair.RefreshToken)
	require.NoError(t, err)

	claims, err := manager.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}
