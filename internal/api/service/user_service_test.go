package service

import (
	"context"
	"encoding/json"
	"testing"

	"ctchen222/todo-api/internal/api/models"
	"ctchen222/todo-api/internal/apperr"
	"ctchen222/todo-api/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	user, err := env.users.Register(ctx, &models.RegisterRequest{Username: "validuser", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "secret1", user.Password)
	assert.True(t, env.hasher.Verify("secret1", user.Password))

	stored, err := env.users.FindByUsername(ctx, "validuser")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret1", stored.Password)
	assert.True(t, env.hasher.Verify("secret1", stored.Password))
	assert.False(t, env.hasher.Verify("secret2", stored.Password))

	res, err := env.users.Login(ctx, &models.LoginRequest{Username: "validuser", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "validuser", res.User.Username)
	assert.Equal(t, user.ID, res.User.ID)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
	assert.NotContains(t, string(raw), stored.Password)

	claims, err := env.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "validuser", claims.Username)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestUserService_LoginRejected(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.users.Register(ctx, &models.RegisterRequest{Username: "validuser", Password: "secret1"})
	require.NoError(t, err)

	_, wrongPassword := env.users.Login(ctx, &models.LoginRequest{Username: "validuser", Password: "secret2"})
	assert.True(t, apperr.Is(wrongPassword, apperr.KindUnauthorized))

	_, unknownUser := env.users.Login(ctx, &models.LoginRequest{Username: "nobody1", Password: "secret1"})
	assert.True(t, apperr.Is(unknownUser, apperr.KindUnauthorized))
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error(), "no hint which part was wrong")

	_, err = env.users.Login(ctx, &models.LoginRequest{Username: "validuser"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUserService_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  models.RegisterRequest
	}{
		{name: "short username", req: models.RegisterRequest{Username: "abc", Password: "secret1"}},
		{name: "short password", req: models.RegisterRequest{Username: "validuser", Password: "12345"}},
		{name: "missing fields", req: models.RegisterRequest{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.users.Register(ctx, &tt.req)
			assert.True(t, apperr.Is(err, apperr.KindValidation))
		})
	}

	all, err := env.users.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "nothing is stored for invalid input")
}

func TestUserService_RegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.users.Register(ctx, &models.RegisterRequest{Username: "validuser", Password: "secret1"})
	require.NoError(t, err)
	_, err = env.users.Register(ctx, &models.RegisterRequest{Username: "validuser", Password: "secret2"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestUserService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	alice, err := env.users.Register(ctx, &models.RegisterRequest{Username: "alice01", Password: "secret1"})
	require.NoError(t, err)
	_, err = env.users.Register(ctx, &models.RegisterRequest{Username: "bobby01", Password: "secret1"})
	require.NoError(t, err)

	self := &auth.Identity{Username: "alice01", Role: models.RoleUser}
	other := &auth.Identity{Username: "bobby01", Role: models.RoleUser}
	admin := &auth.Identity{Username: "admin01", Role: models.RoleAdmin}
	first := "Alice"

	updated, err := env.users.UpdateProfile(ctx, self, alice.ID, &models.UpdateUserRequest{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.FirstName)
	assert.Equal(t, alice.Password, updated.Password, "password hash is kept")

	_, err = env.users.UpdateProfile(ctx, other, alice.ID, &models.UpdateUserRequest{FirstName: &first})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = env.users.UpdateProfile(ctx, self, alice.ID, &models.UpdateUserRequest{Role: models.RoleAdmin})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	promoted, err := env.users.UpdateProfile(ctx, admin, alice.ID, &models.UpdateUserRequest{Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)
	assert.Equal(t, "Alice", promoted.FirstName)

	_, err = env.users.UpdateProfile(ctx, admin, "missing", &models.UpdateUserRequest{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = env.users.UpdateProfile(ctx, admin, alice.ID, &models.UpdateUserRequest{Role: "Root"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
