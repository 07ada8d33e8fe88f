package workerid

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/journal/journal/internal/config"
	"github.com/journal/journal/internal/metrics"
	"github.com/journal/journal/pkg/logger"
)

// acquireScript walks the ID space from a random offset and claims the first
// free key with SET NX PX.
var acquireScript = redis.NewScript(`
local prefix = KEYS[1]
local value = ARGV[1]
local ttl = tonumber(ARGV[2])
local max_id = tonumber(ARGV[3])
local offset = tonumber(ARGV[4])

for i = 0, max_id - 1 do
	local id = (offset + i) % max_id
	if redis.call("SET", prefix .. ":" .. id, value, "NX", "PX", ttl) then
		return id
	end
end
return -1
`)

// refreshScript extends the lease only while this holder still owns it.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// releaseScript deletes the key only while this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisClient creates a Redis client and verifies connectivity.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// RedisLease leases a worker ID from Redis so that processes sharing a Redis
// instance never run under the same ID at the same time.
type RedisLease struct {
	client    redis.Scripter
	keyPrefix string
	ttl       time.Duration
	holder    string
	log       *logger.Logger

	mu       sync.Mutex
	id       int64
	key      string
	acquired bool
}

// NewRedisLease creates a lease source. ttl is how long a lease survives
// without refresh.
func NewRedisLease(client redis.Scripter, keyPrefix string, ttl time.Duration, log *logger.Logger) *RedisLease {
	hostname, _ := os.Hostname()
	return &RedisLease{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		holder:    fmt.Sprintf("%s:%d:%d", hostname, os.Getpid(), time.Now().UnixNano()),
		log:       log,
	}
}

// Acquire claims a free worker ID.
func (l *RedisLease) Acquire(ctx context.Context) (int64, error) {
	offset := rand.IntN(MaxWorkers)

	res, err := acquireScript.Run(ctx, l.client, []string{l.keyPrefix},
		l.holder, l.ttl.Milliseconds(), MaxWorkers, offset).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to acquire worker ID: %w", err)
	}
	if res < 0 {
		return 0, ErrNoWorkerIDAvailable
	}

	l.mu.Lock()
	l.id = res
	l.key = fmt.Sprintf("%s:%d", l.keyPrefix, res)
	l.acquired = true
	l.mu.Unlock()

	if l.log != nil {
		l.log.Info("worker id leased", "worker_id", res, "key", l.key, "ttl", l.ttl.String())
	}

	return res, nil
}

// Refresh extends the lease by one ttl.
func (l *RedisLease) Refresh(ctx context.Context) error {
	key, ok := l.currentKey()
	if !ok {
		return ErrNotAcquired
	}

	n, err := refreshScript.Run(ctx, l.client, []string{key}, l.holder, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to refresh worker ID lease: %w", err)
	}
	if n == 0 {
		return ErrLeaseLost
	}
	return nil
}

// KeepAlive refreshes the lease every ttl/3 until ctx is done. A transient
// failure is retried on the next tick; the first error that leaves the lease
// expired or lost is sent on the returned channel, which is then closed.
func (l *RedisLease) KeepAlive(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)

		interval := l.ttl / 3
		if interval <= 0 {
			interval = time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		lastOK := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				refreshCtx, cancel := context.WithTimeout(ctx, interval)
				err := l.Refresh(refreshCtx)
				cancel()

				if err == nil {
					lastOK = time.Now()
					continue
				}
				if ctx.Err() != nil {
					return
				}
				metrics.RecordWorkerLeaseFailure()
				if l.log != nil {
					key, _ := l.currentKey()
					l.log.Warn("worker id lease refresh failed", "key", key, "error", err.Error())
				}
				if errors.Is(err, ErrLeaseLost) || time.Since(lastOK) >= l.ttl {
					errCh <- err
					return
				}
			}
		}
	}()

	return errCh
}

// Release deletes the lease if it is still held.
func (l *RedisLease) Release(ctx context.Context) error {
	key, ok := l.currentKey()
	if !ok {
		return nil
	}

	if err := releaseScript.Run(ctx, l.client, []string{key}, l.holder).Err(); err != nil {
		return fmt.Errorf("failed to release worker ID lease: %w", err)
	}

	l.mu.Lock()
	l.acquired = false
	l.mu.Unlock()

	if l.log != nil {
		l.log.Info("worker id released", "key", key)
	}
	return nil
}

// WorkerID returns the leased ID and whether one is held.
func (l *RedisLease) WorkerID() (int64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.id, l.acquired
}

func (l *RedisLease) currentKey() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.key, l.acquired
}
