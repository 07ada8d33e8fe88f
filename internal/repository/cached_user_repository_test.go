package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/journal/journal/internal/cache"
	"github.com/journal/journal/internal/idgen"
	"github.com/journal/journal/internal/models"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id idgen.ID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserRepo) Delete(ctx context.Context, id idgen.ID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserRepo) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockUserCache struct {
	mock.Mock
}

func (m *mockUserCache) Get(ctx context.Context, id idgen.ID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockUserCache) Set(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserCache) Delete(ctx context.Context, id idgen.ID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserCache) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestCachedUserRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	user := &models.User{ID: 99, Username: "ada"}

	t.Run("hit skips database", func(t *testing.T) {
		repo := new(mockUserRepo)
		uc := new(mockUserCache)
		uc.On("Get", ctx, idgen.ID(99)).Return(user, nil)

		got, err := NewCachedUserRepository(repo, uc, nil).GetByID(ctx, 99)
		require.NoError(t, err)
		assert.Same(t, user, got)
		repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("miss loads and stores", func(t *testing.T) {
		repo := new(mockUserRepo)
		uc := new(mockUserCache)
		uc.On("Get", ctx, idgen.ID(99)).Return(nil, cache.ErrCacheMiss)
		repo.On("GetByID", ctx, idgen.ID(99)).Return(user, nil)
		uc.On("Set", ctx, user).Return(nil)

		got, err := NewCachedUserRepository(repo, uc, nil).GetByID(ctx, 99)
		require.NoError(t, err)
		assert.Same(t, user, got)
		uc.AssertExpectations(t)
	})

	t.Run("not found is not cached", func(t *testing.T) {
		repo := new(mockUserRepo)
		uc := new(mockUserCache)
		uc.On("Get", ctx, idgen.ID(5)).Return(nil, cache.ErrCacheMiss)
		repo.On("GetByID", ctx, idgen.ID(5)).Return(nil, models.ErrUserNotFound)

		_, err := NewCachedUserRepository(repo, uc, nil).GetByID(ctx, 5)
		assert.ErrorIs(t, err, models.ErrUserNotFound)
		uc.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
	})

	t.Run("set failure is ignored", func(t *testing.T) {
		repo := new(mockUserRepo)
		uc := new(mockUserCache)
		uc.On("Get", ctx, idgen.ID(99)).Return(nil, errors.New("redis down"))
		repo.On("GetByID", ctx, idgen.ID(99)).Return(user, nil)
		uc.On("Set", ctx, user).Return(errors.New("redis down"))

		got, err := NewCachedUserRepository(repo, uc, nil).GetByID(ctx, 99)
		require.NoError(t, err)
		assert.Same(t, user, got)
	})
}

func TestCachedUserRepository_Create(t *testing.T) {
	ctx := context.Background()
	user := &models.User{ID: 1, Username: "ada"}

	t.Run("write through", func(t *testing.T) {
		repo := new(mockUserRepo)
		uc := new(mockUserCache)
		repo.On("Create", ctx, user).Return(nil)
		uc.On("Set", ctx, user).Return(nil)

		require.NoError(t, NewCachedUserRepository(repo, uc, nil).Create(ctx, user))
		uc.AssertExpectations(t)
	})

	t.Run("database failure skips cache", func(t *testing.T) {
		repo := new(mockUserRepo)
		uc := new(mockUserCache)
		repo.On("Create", ctx, user).Return(models.ErrUsernameTaken)

		err := NewCachedUserRepository(repo, uc, nil).Create(ctx, user)
		assert.ErrorIs(t, err, models.ErrUsernameTaken)
		uc.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
	})
}

func TestCachedUserRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := new(mockUserRepo)
	uc := new(mockUserCache)
	uc.On("Delete", ctx, idgen.ID(1)).Return(errors.New("redis down"))
	repo.On("Delete", ctx, idgen.ID(1)).Return(nil)

	require.NoError(t, NewCachedUserRepository(repo, uc, nil).Delete(ctx, 1))
	repo.AssertExpectations(t)
}

func TestCachedUserRepository_HealthCheck(t *testing.T) {
	ctx := context.Background()

	repo := new(mockUserRepo)
	uc := new(mockUserCache)
	uc.On("Ping", ctx).Return(errors.New("redis down"))
	assert.Error(t, NewCachedUserRepository(repo, uc, nil).HealthCheck(ctx))
	repo.AssertNotCalled(t, "HealthCheck", mock.Anything)

	repo = new(mockUserRepo)
	uc = new(mockUserCache)
	uc.On("Ping", ctx).Return(nil)
	repo.On("HealthCheck", ctx).Return(nil)
	assert.NoError(t, NewCachedUserRepository(repo, uc, nil).HealthCheck(ctx))
}

func TestCachedUserRepository_GetByUsernamePassesThrough(t *testing.T) {
	ctx := context.Background()
	repo := new(mockUserRepo)
	uc := new(mockUserCache)
	repo.On("GetByUsername", ctx, "ada").Return(&models.User{Username: "ada"}, nil)

	got, err := NewCachedUserRepository(repo, uc, nil).GetByUsername(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, "ada", got.Username)
	uc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}
