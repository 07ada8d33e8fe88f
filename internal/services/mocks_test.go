package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/journal/journal/internal/idgen"
	"github.com/journal/journal/internal/models"
	"github.com/journal/journal/internal/repository"
)

// MockUserRepository is a mock implementation of repository.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id idgen.ID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, id idgen.ID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockEntryRepository is a mock implementation of repository.EntryRepository.
type MockEntryRepository struct {
	mock.Mock
}

func (m *MockEntryRepository) Create(ctx context.Context, entry *models.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockEntryRepository) GetByID(ctx context.Context, id idgen.ID) (*models.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entry), args.Error(1)
}

func (m *MockEntryRepository) ListByAuthor(ctx context.Context, authorID idgen.ID, opts repository.ListOptions) ([]*models.Entry, error) {
	args := m.Called(ctx, authorID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Entry), args.Error(1)
}

func (m *MockEntryRepository) Update(ctx context.Context, entry *models.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockEntryRepository) Delete(ctx context.Context, id idgen.ID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockMinter is a mock implementation of IDMinter.
type MockMinter struct {
	mock.Mock
}

func (m *MockMinter) Generate() (idgen.ID, error) {
	args := m.Called()
	return args.Get(0).(idgen.ID), args.Error(1)
}
