package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/journal/journal/internal/idgen"
	"github.com/journal/journal/internal/metrics"
	"github.com/journal/journal/internal/models"
	"github.com/journal/journal/internal/repository"
	"github.com/journal/journal/pkg/logger"
)

const (
	aliceID = idgen.ID(5000<<22 | 1<<10 | 1)
	bobID   = idgen.ID(5000<<22 | 1<<10 | 2)
	entryID = idgen.ID(6000<<22 | 1<<10 | 3)
)

func newJournalTest() (*JournalServiceImpl, *MockUserRepository, *MockEntryRepository, *MockMinter) {
	users := new(MockUserRepository)
	entries := new(MockEntryRepository)
	minter := new(MockMinter)
	return NewJournalService(users, entries, minter, nil), users, entries, minter
}

func TestJournalService_CreateUser(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		req        models.UserCreate
		setupMocks func(*MockUserRepository, *MockMinter)
		wantErr    error
	}{
		{
			name: "creates user with minted id",
			req:  models.UserCreate{Username: " Alice "},
			setupMocks: func(users *MockUserRepository, minter *MockMinter) {
				minter.On("Generate").Return(aliceID, nil)
				users.On("Create", ctx, mock.MatchedBy(func(u *models.User) bool {
					return u.ID == aliceID && u.Username == "alice" && u.DisplayName == "Alice" &&
						u.CreatedAt.Equal(aliceID.Time())
				})).Return(nil)
			},
		},
		{
			name:       "invalid username never mints",
			req:        models.UserCreate{Username: "not valid!"},
			setupMocks: func(*MockUserRepository, *MockMinter) {},
			wantErr:    models.ErrInvalidUsername,
		},
		{
			name: "clock regression is returned unchanged",
			req:  models.UserCreate{Username: "alice"},
			setupMocks: func(_ *MockUserRepository, minter *MockMinter) {
				minter.On("Generate").Return(idgen.ID(0), idgen.ErrClockMovedBackwards)
			},
			wantErr: idgen.ErrClockMovedBackwards,
		},
		{
			name: "username taken",
			req:  models.UserCreate{Username: "alice"},
			setupMocks: func(users *MockUserRepository, minter *MockMinter) {
				minter.On("Generate").Return(aliceID, nil)
				users.On("Create", ctx, mock.Anything).Return(models.ErrUsernameTaken)
			},
			wantErr: models.ErrUsernameTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, users, _, minter := newJournalTest()
			tt.setupMocks(users, minter)

			user, err := svc.CreateUser(ctx, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, aliceID, user.ID)
			}

			users.AssertExpectations(t)
			minter.AssertExpectations(t)
		})
	}
}

func TestJournalService_CreateUser_LogsGenerationFailure(t *testing.T) {
	users := new(MockUserRepository)
	minter := new(MockMinter)
	minter.On("Generate").Return(idgen.ID(0), idgen.ErrClockMovedBackwards)

	var buf bytes.Buffer
	svc := NewJournalService(users, new(MockEntryRepository), minter, logger.New(&buf, "info"))

	before := testutil.ToFloat64(metrics.IDGenerationErrorsTotal.WithLabelValues(metrics.ReasonClockBackwards))

	_, err := svc.CreateUser(context.Background(), models.UserCreate{Username: "alice"})
	assert.ErrorIs(t, err, idgen.ErrClockMovedBackwards)

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.IDGenerationErrorsTotal.WithLabelValues(metrics.ReasonClockBackwards)))
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.Contains(t, buf.String(), `"kind":"user"`)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestJournalService_CreateEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("creates entry for existing author", func(t *testing.T) {
		svc, users, entries, minter := newJournalTest()
		users.On("GetByID", ctx, aliceID).Return(&models.User{ID: aliceID}, nil)
		minter.On("Generate").Return(entryID, nil)
		entries.On("Create", ctx, mock.MatchedBy(func(e *models.Entry) bool {
			return e.ID == entryID && e.AuthorID == aliceID && e.Title == models.DefaultEntryTitle &&
				assert.ObjectsAreEqual([]string{"travel"}, e.Tags)
		})).Return(nil)

		before := testutil.ToFloat64(metrics.EntriesCreatedTotal)

		entry, err := svc.CreateEntry(ctx, aliceID, models.EntryCreate{Tags: []string{"Travel", "travel "}})
		require.NoError(t, err)
		assert.Equal(t, entryID, entry.ID)
		assert.Equal(t, entryID.Time(), entry.CreatedAt)
		assert.Equal(t, before+1, testutil.ToFloat64(metrics.EntriesCreatedTotal))

		entries.AssertExpectations(t)
	})

	t.Run("unknown author", func(t *testing.T) {
		svc, users, entries, minter := newJournalTest()
		users.On("GetByID", ctx, aliceID).Return(nil, models.ErrUserNotFound)

		_, err := svc.CreateEntry(ctx, aliceID, models.EntryCreate{Title: "x"})
		assert.ErrorIs(t, err, models.ErrUserNotFound)
		minter.AssertNotCalled(t, "Generate")
		entries.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("exhausted sequence", func(t *testing.T) {
		svc, users, entries, minter := newJournalTest()
		users.On("GetByID", ctx, aliceID).Return(&models.User{ID: aliceID}, nil)
		minter.On("Generate").Return(idgen.ID(0), idgen.ErrSequenceExhausted)

		_, err := svc.CreateEntry(ctx, aliceID, models.EntryCreate{Title: "x"})
		assert.ErrorIs(t, err, idgen.ErrSequenceExhausted)
		entries.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestJournalService_GetEntry(t *testing.T) {
	ctx := context.Background()
	svc, _, entries, _ := newJournalTest()
	entries.On("GetByID", ctx, entryID).Return(&models.Entry{ID: entryID, AuthorID: aliceID}, nil)
	entries.On("GetByID", ctx, idgen.ID(1)).Return(nil, models.ErrEntryNotFound)

	entry, err := svc.GetEntry(ctx, aliceID, entryID)
	require.NoError(t, err)
	assert.Equal(t, entryID, entry.ID)

	_, err = svc.GetEntry(ctx, bobID, entryID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetEntry(ctx, aliceID, 1)
	assert.ErrorIs(t, err, models.ErrEntryNotFound)
}

func TestJournalService_ListEntries(t *testing.T) {
	ctx := context.Background()

	t.Run("own entries with normalized tag", func(t *testing.T) {
		svc, _, entries, _ := newJournalTest()
		list := []*models.Entry{{ID: entryID, AuthorID: aliceID}}
		entries.On("ListByAuthor", ctx, aliceID, repository.ListOptions{Tag: "travel", Limit: 5}).Return(list, nil)

		got, err := svc.ListEntries(ctx, aliceID, aliceID, repository.ListOptions{Tag: " Travel ", Limit: 5})
		require.NoError(t, err)
		assert.Equal(t, list, got)
	})

	t.Run("blank tag lists everything", func(t *testing.T) {
		svc, _, entries, _ := newJournalTest()
		entries.On("ListByAuthor", ctx, aliceID, repository.ListOptions{}).Return([]*models.Entry{}, nil)

		_, err := svc.ListEntries(ctx, aliceID, aliceID, repository.ListOptions{Tag: "  "})
		require.NoError(t, err)
		entries.AssertExpectations(t)
	})

	t.Run("someone else's journal", func(t *testing.T) {
		svc, _, entries, _ := newJournalTest()

		_, err := svc.ListEntries(ctx, bobID, aliceID, repository.ListOptions{})
		assert.ErrorIs(t, err, ErrForbidden)
		entries.AssertNotCalled(t, "ListByAuthor", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestJournalService_UpdateEntry(t *testing.T) {
	ctx := context.Background()
	title := "  New title "

	t.Run("applies update", func(t *testing.T) {
		svc, _, entries, _ := newJournalTest()
		entries.On("GetByID", ctx, entryID).Return(&models.Entry{ID: entryID, AuthorID: aliceID, Title: "old"}, nil)
		entries.On("Update", ctx, mock.MatchedBy(func(e *models.Entry) bool {
			return e.Title == "New title"
		})).Return(nil)

		entry, err := svc.UpdateEntry(ctx, aliceID, entryID, models.EntryUpdate{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "New title", entry.Title)
		entries.AssertExpectations(t)
	})

	t.Run("forbidden", func(t *testing.T) {
		svc, _, entries, _ := newJournalTest()
		entries.On("GetByID", ctx, entryID).Return(&models.Entry{ID: entryID, AuthorID: aliceID}, nil)

		_, err := svc.UpdateEntry(ctx, bobID, entryID, models.EntryUpdate{Title: &title})
		assert.ErrorIs(t, err, ErrForbidden)
		entries.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("empty update", func(t *testing.T) {
		svc, _, entries, _ := newJournalTest()
		entries.On("GetByID", ctx, entryID).Return(&models.Entry{ID: entryID, AuthorID: aliceID}, nil)

		_, err := svc.UpdateEntry(ctx, aliceID, entryID, models.EntryUpdate{})
		assert.ErrorIs(t, err, models.ErrEmptyEntryUpdate)
	})
}

func TestJournalService_DeleteEntry(t *testing.T) {
	ctx := context.Background()

	svc, _, entries, _ := newJournalTest()
	entries.On("GetByID", ctx, entryID).Return(&models.Entry{ID: entryID, AuthorID: aliceID}, nil)
	entries.On("Delete", ctx, entryID).Return(nil).Once()

	assert.ErrorIs(t, svc.DeleteEntry(ctx, bobID, entryID), ErrForbidden)
	require.NoError(t, svc.DeleteEntry(ctx, aliceID, entryID))
	entries.AssertExpectations(t)
}

func TestJournalService_GetUser(t *testing.T) {
	ctx := context.Background()
	svc, users, _, _ := newJournalTest()
	users.On("GetByID", ctx, aliceID).Return(&models.User{ID: aliceID, Username: "alice"}, nil)
	users.On("GetByID", ctx, bobID).Return(nil, errors.New("db down"))

	u, err := svc.GetUser(ctx, aliceID)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = svc.GetUser(ctx, bobID)
	assert.EqualError(t, err, "db down")
}
