package service

import (
	"context"
	"testing"
	"time"

	"ctchen222/todo-api/internal/api/models"
	"ctchen222/todo-api/internal/auth"
	"ctchen222/todo-api/internal/mapper"
	"ctchen222/todo-api/internal/store"
	"ctchen222/todo-api/internal/store/sqlitestore"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	users  *UserService
	todos  *TodoService
	tokens *auth.TokenService
	hasher *auth.Hasher
	mapper *mapper.Mapper
}

func newTestMapper() *mapper.Mapper {
	m := mapper.New()
	models.RegisterProfiles(m)
	return m
}

func openCollection(t *testing.T, spec store.CollectionSpec) store.Collection {
	t.Helper()
	ctx := context.Background()
	d, err := sqlitestore.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close(ctx) })

	coll, err := d.Collection(ctx, spec)
	require.NoError(t, err)
	return coll
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvAt(t, ":memory:")
}

// newTestEnvAt builds the services on the sqlite database at path.
func newTestEnvAt(t *testing.T, path string) *testEnv {
	t.Helper()
	ctx := context.Background()

	d, err := sqlitestore.Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close(ctx) })

	userColl, err := d.Collection(ctx, UserSpec)
	require.NoError(t, err)
	todoColl, err := d.Collection(ctx, TodoSpec)
	require.NoError(t, err)

	hasher, err := auth.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService([]byte("test-secret"), time.Hour)
	require.NoError(t, err)

	m := newTestMapper()
	return &testEnv{
		users:  NewUserService(userColl, m, hasher, tokens),
		todos:  NewTodoService(todoColl, m),
		tokens: tokens,
		hasher: hasher,
		mapper: m,
	}
}
