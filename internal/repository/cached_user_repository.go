package repository

import (
	"context"

	"github.com/journal/journal/internal/cache"
	"github.com/journal/journal/internal/idgen"
	"github.com/journal/journal/internal/models"
	"github.com/journal/journal/pkg/logger"
)

// CachedUserRepository wraps a UserRepository with a read-through,
// write-through user cache keyed by ID. Cache failures never fail a call.
type CachedUserRepository struct {
	repo  UserRepository
	cache cache.UserCacher
	log   *logger.Logger
}

// NewCachedUserRepository creates a cached user repository.
func NewCachedUserRepository(repo UserRepository, userCache cache.UserCacher, log *logger.Logger) *CachedUserRepository {
	return &CachedUserRepository{repo: repo, cache: userCache, log: log}
}

// Create stores the user in the database, then in the cache.
func (c *CachedUserRepository) Create(ctx context.Context, user *models.User) error {
	if err := c.repo.Create(ctx, user); err != nil {
		return err
	}
	c.store(ctx, user)
	return nil
}

// GetByID checks the cache first and falls back to the database.
func (c *CachedUserRepository) GetByID(ctx context.Context, id idgen.ID) (*models.User, error) {
	if user, err := c.cache.Get(ctx, id); err == nil {
		return user, nil
	}

	user, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, user)
	return user, nil
}

// GetByUsername is not cached.
func (c *CachedUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return c.repo.GetByUsername(ctx, username)
}

// Delete evicts the user before deleting it from the database.
func (c *CachedUserRepository) Delete(ctx context.Context, id idgen.ID) error {
	if err := c.cache.Delete(ctx, id); err != nil {
		c.warn("user cache delete failed", id, err)
	}
	return c.repo.Delete(ctx, id)
}

// HealthCheck checks both cache and database health.
func (c *CachedUserRepository) HealthCheck(ctx context.Context) error {
	if err := c.cache.Ping(ctx); err != nil {
		return err
	}
	return c.repo.HealthCheck(ctx)
}

func (c *CachedUserRepository) store(ctx context.Context, user *models.User) {
	if err := c.cache.Set(ctx, user); err != nil {
		c.warn("user cache set failed", user.ID, err)
	}
}

func (c *CachedUserRepository) warn(msg string, id idgen.ID, err error) {
	if c.log != nil {
		c.log.Warn(msg, "user_id", id.String(), "error", err.Error())
	}
}
