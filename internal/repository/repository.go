// Package repository handles data persistence.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/journal/journal/internal/idgen"
	"github.com/journal/journal/internal/models"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create stores a user whose ID was already minted.
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by its ID.
	GetByID(ctx context.Context, id idgen.ID) (*models.User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// Delete removes a user together with all of their entries.
	Delete(ctx context.Context, id idgen.ID) error

	// HealthCheck verifies the repository is healthy.
	HealthCheck(ctx context.Context) error
}

// ListOptions narrows an author's entry listing.
type ListOptions struct {
	// Tag keeps only entries carrying this tag. Empty means all.
	Tag string
	// Before keeps only entries with a smaller (older) ID. Zero means no bound.
	Before idgen.ID
	// Limit caps the result size. Zero or less means DefaultListLimit.
	Limit int
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

func (o ListOptions) limit() int {
	switch {
	case o.Limit <= 0:
		return DefaultListLimit
	case o.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return o.Limit
	}
}

// EntryRepository defines the interface for entry persistence operations.
type EntryRepository interface {
	// Create stores an entry whose ID was already minted.
	Create(ctx context.Context, entry *models.Entry) error

	// GetByID retrieves an entry by its ID.
	GetByID(ctx context.Context, id idgen.ID) (*models.Entry, error)

	// ListByAuthor returns the author's entries newest first.
	ListByAuthor(ctx context.Context, authorID idgen.ID, opts ListOptions) ([]*models.Entry, error)

	// Update overwrites title, content and tags of an existing entry.
	Update(ctx context.Context, entry *models.Entry) error

	// Delete removes an entry by its ID.
	Delete(ctx context.Context, id idgen.ID) error
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func hasPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
