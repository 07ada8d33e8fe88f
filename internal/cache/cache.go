// Package cache handles Redis caching operations.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/journal/journal/internal/idgen"
	"github.com/journal/journal/internal/models"
)

// ErrCacheMiss is returned when a key is not cached.
var ErrCacheMiss = errors.New("cache miss")

// Cache defines the interface for caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// RedisCache implements Cache on a shared Redis client. It does not own the
// client; whoever created it closes it.
type RedisCache struct {
	client redis.Cmdable
}

// NewRedisCache wraps an existing Redis client.
func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{client: client}
}

// Get retrieves a value from the cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("cache get failed: %w", err)
	}
	return val, nil
}

// Set stores a value in the cache with a TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Delete removes a value from the cache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}

// Ping checks if the cache is healthy.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// UserCacher is the user-specific view used by the cached repository.
type UserCacher interface {
	Get(ctx context.Context, id idgen.ID) (*models.User, error)
	Set(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id idgen.ID) error
	Ping(ctx context.Context) error
}

var _ UserCacher = (*UserCache)(nil)

// UserCache stores users as JSON under "<prefix><decimal id>".
type UserCache struct {
	cache     Cache
	keyPrefix string
	ttl       time.Duration
}

// NewUserCache creates a user cache. Empty prefix and zero ttl fall back to
// "journal:user:" and ten minutes.
func NewUserCache(cache Cache, keyPrefix string, ttl time.Duration) *UserCache {
	if keyPrefix == "" {
		keyPrefix = "journal:user:"
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &UserCache{cache: cache, keyPrefix: keyPrefix, ttl: ttl}
}

// cachedUser is the stored form. CreatedAt is not stored; it is derived from
// the ID on the way out.
type cachedUser struct {
	ID          idgen.ID `json:"id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name"`
	Timezone    string   `json:"timezone"`
}

// Get retrieves a user by ID.
func (c *UserCache) Get(ctx context.Context, id idgen.ID) (*models.User, error) {
	data, err := c.cache.Get(ctx, c.key(id))
	if err != nil {
		return nil, err
	}

	var cu cachedUser
	if err := json.Unmarshal(data, &cu); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached user: %w", err)
	}
	return &models.User{
		ID:          cu.ID,
		Username:    cu.Username,
		DisplayName: cu.DisplayName,
		Timezone:    cu.Timezone,
		CreatedAt:   cu.ID.Time(),
	}, nil
}

// Set stores a user with the cache's ttl.
func (c *UserCache) Set(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(cachedUser{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Timezone:    user.Timezone,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	return c.cache.Set(ctx, c.key(user.ID), data, c.ttl)
}

// Delete evicts a user.
func (c *UserCache) Delete(ctx context.Context, id idgen.ID) error {
	return c.cache.Delete(ctx, c.key(id))
}

// Ping checks if the cache is healthy.
func (c *UserCache) Ping(ctx context.Context) error {
	return c.cache.Ping(ctx)
}

func (c *UserCache) key(id idgen.ID) string {
	return c.keyPrefix + strconv.FormatUint(uint64(id), 10)
}
