package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ctchen222/todo-api/internal/api/models"
	"ctchen222/todo-api/internal/apperr"
	"ctchen222/todo-api/internal/mapper"
	"ctchen222/todo-api/internal/store"
	"ctchen222/todo-api/internal/store/mock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newUserEntities(t *testing.T) *EntityService[models.User, models.UserVm, *models.User] {
	return NewEntityService[models.User, models.UserVm](openCollection(t, UserSpec), newTestMapper(), models.UserToVm)
}

func TestEntityService_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := newUserEntities(t)

	created, err := s.Create(ctx, &models.User{Username: "alice01", Role: models.RoleUser})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	byID, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "alice01", byID.Username)

	one, err := s.FindOne(ctx, store.Filter{"username": "alice01"})
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.Equal(t, created.ID, one.ID)

	all, err := s.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEntityService_AbsentIsNotAnError(t *testing.T) {
	ctx := context.Background()
	s := newUserEntities(t)

	byID, err := s.FindByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, byID)

	one, err := s.FindOne(ctx, store.Filter{"username": "nobody1"})
	require.NoError(t, err)
	assert.Nil(t, one)

	all, err := s.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestEntityService_DuplicateIsConflict(t *testing.T) {
	ctx := context.Background()
	s := newUserEntities(t)

	const n = 4
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Create(ctx, &models.User{Username: "samename"})
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.Is(err, apperr.KindConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
}

func TestEntityService_UpdateMissing(t *testing.T) {
	ctx := context.Background()
	s := newUserEntities(t)

	_, err := s.Update(ctx, "missing", &models.User{Username: "ghost01"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	all, err := s.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "update must never create a record")
}

func TestEntityService_UpdateKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	s := newUserEntities(t)

	created, err := s.Create(ctx, &models.User{Username: "alice01"})
	require.NoError(t, err)

	patch := &models.User{Base: models.Base{ID: "forged"}, Username: "alice02"}
	updated, err := s.Update(ctx, created.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	got, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice02", got.Username)

	forged, err := s.FindByID(ctx, "forged")
	require.NoError(t, err)
	assert.Nil(t, forged)
}

func TestEntityService_DeleteThenFind(t *testing.T) {
	ctx := context.Background()
	s := newUserEntities(t)

	created, err := s.Create(ctx, &models.User{Username: "alice01"})
	require.NoError(t, err)

	deleted, err := s.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice01", deleted.Username)

	got, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = s.Delete(ctx, created.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestEntityService_Map(t *testing.T) {
	s := newUserEntities(t)

	vm, err := s.Map(&models.User{Username: "alice01", Password: "hash"})
	require.NoError(t, err)
	assert.Equal(t, "alice01", vm.Username)

	vms, err := s.MapAll([]*models.User{{Username: "a"}, {Username: "b"}})
	require.NoError(t, err)
	assert.Len(t, vms, 2)

	unbound := NewEntityService[models.User, models.UserVm](openCollection(t, UserSpec), mapper.New(), models.UserToVm)
	_, err = unbound.Map(&models.User{})
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))
}

func TestEntityService_DriverFailuresPropagate(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	coll := mock.NewMockCollection(ctrl)
	s := NewEntityService[models.Todo, models.TodoVm](coll, newTestMapper(), models.TodoToVm)

	down := errors.New("connection refused")

	coll.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(down)
	_, err := s.Create(ctx, &models.Todo{Content: "buy milk"})
	assert.True(t, apperr.Is(err, apperr.KindPersistence))
	assert.ErrorIs(t, err, down)

	coll.EXPECT().FindMany(gomock.Any(), gomock.Nil(), gomock.Any()).Return(down)
	_, err = s.FindAll(ctx)
	assert.True(t, apperr.Is(err, apperr.KindPersistence))

	coll.EXPECT().FindByID(gomock.Any(), "t1", gomock.Any()).Return(down)
	_, err = s.FindByID(ctx, "t1")
	assert.True(t, apperr.Is(err, apperr.KindPersistence))

	coll.EXPECT().RemoveByID(gomock.Any(), "t1", gomock.Any()).Return(down)
	_, err = s.Delete(ctx, "t1")
	assert.True(t, apperr.Is(err, apperr.KindPersistence))
}

func TestEntityService_UpdateMissingNeverReplaces(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	coll := mock.NewMockCollection(ctrl)
	s := NewEntityService[models.Todo, models.TodoVm](coll, newTestMapper(), models.TodoToVm)

	// No Replace expectation: calling it fails the test.
	coll.EXPECT().FindByID(gomock.Any(), "t1", gomock.Any()).Return(store.ErrNotFound)

	_, err := s.Update(ctx, "t1", &models.Todo{Content: "x"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestEntityService_DuplicateFromDriver(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	coll := mock.NewMockCollection(ctrl)
	s := NewEntityService[models.User, models.UserVm](coll, newTestMapper(), models.UserToVm)

	coll.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(store.ErrDuplicate)
	_, err := s.Create(ctx, &models.User{Username: "alice01"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}
