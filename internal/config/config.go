// Package config loads service configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	IDGen    IDGenConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Env      string
	LogLevel string
}

// IsProduction reports whether APP_ENV names a production deployment.
func (a AppConfig) IsProduction() bool {
	return a.Env == "production" || a.Env == "prod"
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Address returns the server address in host:port format.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int

	// UserCacheTTL enables the user cache when positive.
	UserCacheTTL time.Duration
}

// Address returns the Redis address in host:port format.
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Worker ID sources.
const (
	WorkerSourceStatic = "static"
	WorkerSourceRedis  = "redis"
)

// maxWorkerID mirrors idgen.MaxWorkerID without importing it.
const maxWorkerID = 1023

// IDGenConfig holds identifier generator configuration.
type IDGenConfig struct {
	WorkerID     int64
	WorkerSource string
	LeaseTTL     time.Duration
	KeyPrefix    string
}

// Load reads configuration from environment variables. Every invalid
// variable is reported, not only the first.
func Load() (*Config, error) {
	var env envLoader
	cfg := &Config{}

	cfg.App.Env = env.str("APP_ENV", "development")
	cfg.App.LogLevel = env.oneOf("LOG_LEVEL", "info", "debug", "info", "warn", "warning", "error")

	cfg.Server.Host = env.str("SERVER_HOST", "0.0.0.0")
	cfg.Server.Port = env.num("SERVER_PORT", 8080, 0, 65535)
	cfg.Server.ReadTimeout = env.duration("SERVER_READ_TIMEOUT", 5*time.Second, 0)
	cfg.Server.WriteTimeout = env.duration("SERVER_WRITE_TIMEOUT", 10*time.Second, 0)
	cfg.Server.ShutdownTimeout = env.duration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second, 0)

	sslMode := "disable"
	if cfg.App.IsProduction() {
		sslMode = "require"
	}
	cfg.Database = DatabaseConfig{
		Host:            env.str("DB_HOST", "localhost"),
		Port:            env.num("DB_PORT", 5432, 1, 65535),
		User:            env.str("DB_USER", "journal"),
		Password:        env.str("DB_PASSWORD", ""),
		DBName:          env.str("DB_NAME", "journal"),
		SSLMode:         env.oneOf("DB_SSLMODE", sslMode, "disable", "allow", "prefer", "require", "verify-ca", "verify-full"),
		MaxOpenConns:    env.num("DB_MAX_OPEN_CONNS", 25, 1, 1000),
		MaxIdleConns:    env.num("DB_MAX_IDLE_CONNS", 5, 0, 1000),
		ConnMaxLifetime: env.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute, 0),
	}

	cfg.Redis = RedisConfig{
		Host:         env.str("REDIS_HOST", "localhost"),
		Port:         env.num("REDIS_PORT", 6379, 1, 65535),
		Password:     env.str("REDIS_PASSWORD", ""),
		DB:           env.num("REDIS_DB", 0, 0, 15),
		PoolSize:     env.num("REDIS_POOL_SIZE", 10, 1, 1000),
		UserCacheTTL: env.duration("REDIS_USER_CACHE_TTL", 0, 0),
	}

	cfg.IDGen = IDGenConfig{
		WorkerID:     int64(env.num("IDGEN_WORKER_ID", 0, 0, maxWorkerID)),
		WorkerSource: env.oneOf("IDGEN_WORKER_SOURCE", WorkerSourceStatic, WorkerSourceStatic, WorkerSourceRedis),
		LeaseTTL:     env.duration("IDGEN_LEASE_TTL", 30*time.Second, 3*time.Second),
		KeyPrefix:    env.str("IDGEN_KEY_PREFIX", "journal:idgen:worker"),
	}

	if err := env.err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DatabaseEnabled returns true if database configuration is provided.
func (c *Config) DatabaseEnabled() bool {
	return c.Database.Host != "" && c.Database.Password != ""
}

// RedisEnabled returns true if Redis configuration is provided.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

// UserCacheEnabled returns true if users should be cached in Redis.
func (c *Config) UserCacheEnabled() bool {
	return c.RedisEnabled() && c.Redis.UserCacheTTL > 0
}

// envLoader reads typed variables and collects one error per bad variable.
type envLoader struct {
	errs []error
}

func (l *envLoader) fail(key, format string, args ...any) {
	l.errs = append(l.errs, fmt.Errorf("invalid %s: %s", key, fmt.Sprintf(format, args...)))
}

func (l *envLoader) err() error {
	return errors.Join(l.errs...)
}

func (l *envLoader) str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// oneOf lowercases the value and requires it to be one of allowed.
func (l *envLoader) oneOf(key, def string, allowed ...string) string {
	v := strings.ToLower(l.str(key, def))
	if !slices.Contains(allowed, v) {
		l.fail(key, "%q is not one of %s", v, strings.Join(allowed, ", "))
		return def
	}
	return v
}

func (l *envLoader) num(key string, def, lo, hi int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		l.fail(key, "%q is not an integer", raw)
		return def
	}
	if v < lo || v > hi {
		l.fail(key, "%d is outside [%d, %d]", v, lo, hi)
		return def
	}
	return v
}

func (l *envLoader) duration(key string, def, lo time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		l.fail(key, "%q is not a duration", raw)
		return def
	}
	if v < lo {
		l.fail(key, "%s is shorter than %s", v, lo)
		return def
	}
	return v
}
