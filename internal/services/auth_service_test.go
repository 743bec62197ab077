package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridvolt/gridvolt-api/internal/config"
	"github.com/gridvolt/gridvolt-api/internal/models"
)

func newAuthEnv(t *testing.T) (*testEnv, *AuthService) {
	t.Helper()
	env := newTestEnv()
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpirationHours: 1}
	return env, NewAuthService(env.repos.User, env.repos.RefreshToken, cfg)
}

func seedActiveUser(t *testing.T, env *testEnv, email, password, role string) *models.User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	user := &models.User{
		FullName:          "Asha Verma",
		Email:             email,
		EncryptedPassword: hash,
		Role:              role,
		Status:            models.StatusActive,
	}
	env.repos.User.Create(context.Background(), user)
	return user
}

func TestAuthService_Login(t *testing.T) {
	env, auth := newAuthEnv(t)
	user := seedActiveUser(t, env, "asha@gridvolt.app", "s3cret-pass", models.RoleSalesHead)

	result, err := auth.Login(context.Background(), "asha@gridvolt.app", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, user.Email, result.User.Email)

	// The JWT carries identity and role claims
	token, err := jwt.Parse(result.Token, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(user.ID), claims["user_id"])
	assert.Equal(t, models.RoleSalesHead, claims["role"])
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	env, auth := newAuthEnv(t)
	seedActiveUser(t, env, "asha@gridvolt.app", "s3cret-pass", models.RoleSales)

	result, err := auth.Login(context.Background(), "asha@gridvolt.app", "wrong")
	assert.Nil(t, result)
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	// Unknown emails fail the same way so callers cannot probe accounts
	_, err = auth.Login(context.Background(), "nobody@gridvolt.app", "s3cret-pass")
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestAuthService_Login_InactiveUser(t *testing.T) {
	env, auth := newAuthEnv(t)
	user := seedActiveUser(t, env, "gone@gridvolt.app", "s3cret-pass", models.RoleSales)
	user.Status = models.StatusSuspended
	env.repos.User.Update(context.Background(), user)

	result, err := auth.Login(context.Background(), "gone@gridvolt.app", "s3cret-pass")
	assert.Nil(t, result)
	require.Error(t, err)
	assert.Equal(t, KindPermission, KindOf(err))
}

func TestAuthService_RefreshToken_Rotation(t *testing.T) {
	env, auth := newAuthEnv(t)
	seedActiveUser(t, env, "asha@gridvolt.app", "s3cret-pass", models.RoleSales)
	ctx := context.Background()

	login, err := auth.Login(ctx, "asha@gridvolt.app", "s3cret-pass")
	require.NoError(t, err)

	refreshed, err := auth.RefreshToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The old token is dead after rotation
	_, err = auth.RefreshToken(ctx, login.RefreshToken)
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestAuthService_RefreshToken_Expired(t *testing.T) {
	env, auth := newAuthEnv(t)
	user := seedActiveUser(t, env, "asha@gridvolt.app", "s3cret-pass", models.RoleSales)
	ctx := context.Background()

	expired := time.Now().Add(-time.Hour)
	rt := &models.RefreshToken{UserID: user.ID, Token: "stale-token", ExpiresAt: &expired}
	env.repos.RefreshToken.Create(ctx, rt)

	_, err := auth.RefreshToken(ctx, "stale-token")
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestAuthService_Logout(t *testing.T) {
	env, auth := newAuthEnv(t)
	seedActiveUser(t, env, "asha@gridvolt.app", "s3cret-pass", models.RoleSales)
	ctx := context.Background()

	login, err := auth.Login(ctx, "asha@gridvolt.app", "s3cret-pass")
	require.NoError(t, err)

	require.NoError(t, auth.Logout(ctx, login.RefreshToken))
	_, err = auth.RefreshToken(ctx, login.RefreshToken)
	require.Error(t, err)
}
