package redisstore

import (
	"context"
	"sync"
	"testing"

	"ctchen222/todo-api/internal/api/models"
	"ctchen222/todo-api/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func startRedis(t *testing.T) *Driver {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	d, err := Open(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close(ctx) })
	return d
}

func TestRedisCollection(t *testing.T) {
	d := startRedis(t)
	ctx := context.Background()

	users, err := d.Collection(ctx, store.CollectionSpec{Name: models.UsersCollection, Unique: []string{"username"}})
	require.NoError(t, err)

	t.Run("insert and find", func(t *testing.T) {
		alice := &models.User{Username: "alice01", Role: models.RoleUser}
		require.NoError(t, users.Insert(ctx, alice))
		require.NotEmpty(t, alice.ID)

		var got models.User
		require.NoError(t, users.FindByID(ctx, alice.ID, &got))
		assert.Equal(t, "alice01", got.Username)

		var found []models.User
		require.NoError(t, users.FindMany(ctx, store.Filter{"username": "alice01"}, &found))
		require.Len(t, found, 1)
		assert.Equal(t, alice.ID, found[0].ID)

		assert.ErrorIs(t, users.FindByID(ctx, "missing", &got), store.ErrNotFound)
	})

	t.Run("find by unique field", func(t *testing.T) {
		var found []models.User
		require.NoError(t, users.FindMany(ctx, store.Filter{"username": "alice01", "role": models.RoleAdmin}, &found))
		assert.Empty(t, found)

		require.NoError(t, users.FindMany(ctx, store.Filter{"username": "nobody1"}, &found))
		assert.Empty(t, found)
	})

	t.Run("unique username", func(t *testing.T) {
		err := users.Insert(ctx, &models.User{Username: "alice01"})
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("concurrent inserts", func(t *testing.T) {
		const n = 8
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = users.Insert(ctx, &models.User{Username: "racer01"})
			}(i)
		}
		wg.Wait()

		var ok, dup int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, store.ErrDuplicate):
				dup++
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, n-1, dup)
	})

	t.Run("replace and remove", func(t *testing.T) {
		bob := &models.User{Username: "bobby01"}
		require.NoError(t, users.Insert(ctx, bob))

		require.NoError(t, users.Replace(ctx, bob.ID, &models.User{Base: bob.Base, Username: "bobby02"}))
		require.NoError(t, users.Insert(ctx, &models.User{Username: "bobby01"}), "old username released")

		assert.ErrorIs(t, users.Replace(ctx, "missing", &models.User{Username: "ghost01"}), store.ErrNotFound)

		var removed models.User
		require.NoError(t, users.RemoveByID(ctx, bob.ID, &removed))
		assert.Equal(t, "bobby02", removed.Username)
		assert.ErrorIs(t, users.RemoveByID(ctx, bob.ID, &removed), store.ErrNotFound)
		require.NoError(t, users.Insert(ctx, &models.User{Username: "bobby02"}), "username released on delete")
	})
}
