package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/journal/journal/internal/database"
	"github.com/journal/journal/internal/idgen"
	"github.com/journal/journal/internal/models"
)

// PostgresEntryRepository implements EntryRepository using PostgreSQL.
type PostgresEntryRepository struct {
	pool *database.Pool
}

// NewPostgresEntryRepository creates a new PostgreSQL-backed entry repository.
func NewPostgresEntryRepository(pool *database.Pool) *PostgresEntryRepository {
	return &PostgresEntryRepository{pool: pool}
}

// Create stores a new entry.
func (r *PostgresEntryRepository) Create(ctx context.Context, entry *models.Entry) error {
	query := `
		INSERT INTO entries (id, author_id, title, content, tags)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		int64(entry.ID), int64(entry.AuthorID), entry.Title, entry.Content, tagsOrEmpty(entry.Tags))
	if err != nil {
		if hasPgCode(err, pgForeignKeyViolation) {
			return models.ErrUserNotFound
		}
		return fmt.Errorf("failed to create entry: %w", err)
	}
	return nil
}

// GetByID retrieves an entry by its ID.
func (r *PostgresEntryRepository) GetByID(ctx context.Context, id idgen.ID) (*models.Entry, error) {
	query := `
		SELECT id, author_id, title, content, tags
		FROM entries
		WHERE id = $1
	`

	entry, err := scanEntry(r.pool.QueryRow(ctx, query, int64(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return entry, nil
}

// ListByAuthor returns the author's entries newest first. IDs are
// time-ordered, so ordering by id is creation order.
func (r *PostgresEntryRepository) ListByAuthor(ctx context.Context, authorID idgen.ID, opts ListOptions) ([]*models.Entry, error) {
	query := `
		SELECT id, author_id, title, content, tags
		FROM entries
		WHERE author_id = $1
		  AND ($2::TEXT = '' OR $2::TEXT = ANY(tags))
		  AND ($3::BIGINT = 0 OR id < $3::BIGINT)
		ORDER BY id DESC
		LIMIT $4
	`

	rows, err := r.pool.Query(ctx, query, int64(authorID), opts.Tag, int64(opts.Before), opts.limit())
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nil
}

// Update overwrites title, content and tags of an existing entry.
func (r *PostgresEntryRepository) Update(ctx context.Context, entry *models.Entry) error {
	query := `UPDATE entries SET title = $2, content = $3, tags = $4 WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, int64(entry.ID), entry.Title, entry.Content, tagsOrEmpty(entry.Tags))
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrEntryNotFound
	}
	return nil
}

// Delete removes an entry by its ID.
func (r *PostgresEntryRepository) Delete(ctx context.Context, id idgen.ID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM entries WHERE id = $1`, int64(id))
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrEntryNotFound
	}
	return nil
}

func scanEntry(row pgx.Row) (*models.Entry, error) {
	var (
		e            models.Entry
		id, authorID int64
	)
	if err := row.Scan(&id, &authorID, &e.Title, &e.Content, &e.Tags); err != nil {
		return nil, err
	}
	e.ID = idgen.ID(id)
	e.AuthorID = idgen.ID(authorID)
	e.Tags = tagsOrEmpty(e.Tags)
	e.CreatedAt = e.ID.Time()
	return &e, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
