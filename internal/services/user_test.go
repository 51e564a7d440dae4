package services

import (
	"context"
	"testing"
	"time"

	"studyspot-backend/internal/apperror"
	"studyspot-backend/internal/models"
	"studyspot-backend/internal/repository/memory"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestUserService() *UserService {
	svc := NewUserService(memory.NewStore().Users, "test-secret", time.Hour)
	svc.bcryptCost = bcrypt.MinCost
	return svc
}

func TestUserService_RegisterAndLogin(t *testing.T) {
	svc := newTestUserService()
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterRequest{
		Name:     "Ann",
		Email:    "Ann@Example.com",
		Password: "correct horse",
		Role:     models.UserRoleBusiness,
	})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	resp, err := svc.Login(ctx, LoginRequest{Email: "ann@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, resp.User.ID)

	id, err := svc.ValidateJWT(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	_, err = svc.Login(ctx, LoginRequest{Email: "ann@example.com", Password: "wrong password"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = svc.Register(ctx, RegisterRequest{Name: "Ann 2", Email: "ann@example.com", Password: "another pass"})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestUserService_RegisterValidation(t *testing.T) {
	svc := newTestUserService()

	tests := []struct {
		name  string
		req   RegisterRequest
		field string
	}{
		{"blank name", RegisterRequest{Name: " ", Email: "a@b.co", Password: "password1"}, "name"},
		{"bad email", RegisterRequest{Name: "a", Email: "not-an-email", Password: "password1"}, "email"},
		{"display name email", RegisterRequest{Name: "a", Email: "Ann <a@b.co>", Password: "password1"}, "email"},
		{"short password", RegisterRequest{Name: "a", Email: "a@b.co", Password: "short"}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.req)
			require.ErrorIs(t, err, apperror.ErrUnprocessable)
			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestUserService_ValidateJWT(t *testing.T) {
	svc := newTestUserService()

	token, _, err := svc.GenerateJWT(42)
	require.NoError(t, err)
	id, err := svc.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	t.Run("expired", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { svc.now = time.Now }()
		_, err := svc.ValidateJWT(token)
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewUserService(nil, "other-secret", time.Hour)
		_, err := other.ValidateJWT(token)
		assert.Error(t, err)
	})

	t.Run("missing user id", func(t *testing.T) {
		raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
		signed, err := raw.SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = svc.ValidateJWT(signed)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateJWT("not.a.token")
		assert.Error(t, err)
	})
}

func TestUserService_GetAndList(t *testing.T) {
	svc := newTestUserService()
	ctx := context.Background()

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)

	user, err := svc.Register(ctx, RegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "password1"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
	assert.Equal(t, models.UserRoleStudent, got.Role)

	_, err = svc.Get(ctx, 999)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
