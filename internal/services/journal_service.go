package services

import (
	"context"
	"errors"

	"github.com/journal/journal/internal/idgen"
	"github.com/journal/journal/internal/metrics"
	"github.com/journal/journal/internal/models"
	"github.com/journal/journal/internal/repository"
	"github.com/journal/journal/pkg/logger"
)

// ErrForbidden is returned when the caller does not own the entry.
var ErrForbidden = errors.New("entry belongs to another user")

// JournalService defines the interface for user and entry operations.
// callerID identifies the user making the request.
type JournalService interface {
	CreateUser(ctx context.Context, req models.UserCreate) (*models.User, error)
	GetUser(ctx context.Context, id idgen.ID) (*models.User, error)
	CreateEntry(ctx context.Context, callerID idgen.ID, req models.EntryCreate) (*models.Entry, error)
	GetEntry(ctx context.Context, callerID, id idgen.ID) (*models.Entry, error)
	ListEntries(ctx context.Context, callerID, authorID idgen.ID, opts repository.ListOptions) ([]*models.Entry, error)
	UpdateEntry(ctx context.Context, callerID, id idgen.ID, req models.EntryUpdate) (*models.Entry, error)
	DeleteEntry(ctx context.Context, callerID, id idgen.ID) error
}

// JournalServiceImpl implements JournalService.
type JournalServiceImpl struct {
	users   repository.UserRepository
	entries repository.EntryRepository
	minter  IDMinter
	log     *logger.Logger
}

// NewJournalService creates a new JournalService instance.
func NewJournalService(users repository.UserRepository, entries repository.EntryRepository, minter IDMinter, log *logger.Logger) *JournalServiceImpl {
	return &JournalServiceImpl{
		users:   users,
		entries: entries,
		minter:  minter,
		log:     orDiscard(log),
	}
}

// CreateUser validates the request, mints the user ID and stores the user.
func (s *JournalServiceImpl) CreateUser(ctx context.Context, req models.UserCreate) (*models.User, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	id, err := mint(s.minter, logger.FromContext(ctx, s.log), "user")
	if err != nil {
		return nil, err
	}

	user := models.NewUser(id, req)
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	metrics.RecordUserCreated()
	logger.FromContext(ctx, s.log).Info("user created", "user_id", user.ID.String(), "username", user.Username)
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *JournalServiceImpl) GetUser(ctx context.Context, id idgen.ID) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// CreateEntry stores a new entry authored by the caller.
func (s *JournalServiceImpl) CreateEntry(ctx context.Context, callerID idgen.ID, req models.EntryCreate) (*models.Entry, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, callerID); err != nil {
		return nil, err
	}

	id, err := mint(s.minter, logger.FromContext(ctx, s.log), "entry")
	if err != nil {
		return nil, err
	}

	entry := models.NewEntry(id, callerID, req)
	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, err
	}

	metrics.RecordEntryCreated()
	logger.FromContext(ctx, s.log).Debug("entry created", "entry_id", entry.ID.String(), "author_id", callerID.String())
	return entry, nil
}

// GetEntry retrieves one of the caller's entries.
func (s *JournalServiceImpl) GetEntry(ctx context.Context, callerID, id idgen.ID) (*models.Entry, error) {
	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.AuthorID != callerID {
		return nil, ErrForbidden
	}
	return entry, nil
}

// ListEntries lists an author's entries newest first. Only the author may
// list their own journal.
func (s *JournalServiceImpl) ListEntries(ctx context.Context, callerID, authorID idgen.ID, opts repository.ListOptions) ([]*models.Entry, error) {
	if callerID != authorID {
		return nil, ErrForbidden
	}
	if opts.Tag != "" {
		tags, err := models.NormalizeTags([]string{opts.Tag})
		if err != nil {
			return nil, err
		}
		opts.Tag = ""
		if len(tags) == 1 {
			opts.Tag = tags[0]
		}
	}
	return s.entries.ListByAuthor(ctx, authorID, opts)
}

// UpdateEntry applies a partial update to one of the caller's entries.
func (s *JournalServiceImpl) UpdateEntry(ctx context.Context, callerID, id idgen.ID, req models.EntryUpdate) (*models.Entry, error) {
	entry, err := s.GetEntry(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	if err := req.Apply(entry); err != nil {
		return nil, err
	}
	if err := s.entries.Update(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// DeleteEntry removes one of the caller's entries.
func (s *JournalServiceImpl) DeleteEntry(ctx context.Context, callerID, id idgen.ID) error {
	if _, err := s.GetEntry(ctx, callerID, id); err != nil {
		return err
	}
	return s.entries.Delete(ctx, id)
}
