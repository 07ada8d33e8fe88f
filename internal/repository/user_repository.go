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

// PostgresUserRepository implements UserRepository using PostgreSQL.
type PostgresUserRepository struct {
	pool *database.Pool
}

// NewPostgresUserRepository creates a new PostgreSQL-backed user repository.
func NewPostgresUserRepository(pool *database.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create stores a new user.
func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, display_name, timezone)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query, int64(user.ID), user.Username, user.DisplayName, user.Timezone)
	if err != nil {
		if hasPgCode(err, pgUniqueViolation) {
			return fmt.Errorf("%w: %s", models.ErrUsernameTaken, user.Username)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by its ID.
func (r *PostgresUserRepository) GetByID(ctx context.Context, id idgen.ID) (*models.User, error) {
	query := `SELECT id, username, display_name, timezone FROM users WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, int64(id)))
}

// GetByUsername retrieves a user by username.
func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT id, username, display_name, timezone FROM users WHERE username = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, username))
}

// Delete removes a user; entries go with it via ON DELETE CASCADE.
func (r *PostgresUserRepository) Delete(ctx context.Context, id idgen.ID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, int64(id))
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// HealthCheck verifies the database connection is healthy.
func (r *PostgresUserRepository) HealthCheck(ctx context.Context) error {
	return r.pool.HealthCheck(ctx)
}

func (r *PostgresUserRepository) scanOne(row pgx.Row) (*models.User, error) {
	var (
		u  models.User
		id int64
	)
	if err := row.Scan(&id, &u.Username, &u.DisplayName, &u.Timezone); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.ID = idgen.ID(id)
	u.CreatedAt = u.ID.Time()
	return &u, nil
}
