package gpswox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// TokenCache holds the provider session token. One cache is built at process
// start and shared by every request.
type TokenCache interface {
	// Get returns the token only while it is unexpired.
	Get(ctx context.Context) (string, bool)
	Set(ctx context.Context, token string, expiresAt time.Time)
	Invalidate(ctx context.Context)
}

// MemoryTokenCache keeps the token in process memory.
type MemoryTokenCache struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// NewMemoryTokenCache creates an empty in-process cache.
func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{now: time.Now}
}

func (c *MemoryTokenCache) Get(_ context.Context) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" || !c.now().Before(c.expiresAt) {
		return "", false
	}
	return c.token, true
}

func (c *MemoryTokenCache) Set(_ context.Context, token string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.expiresAt = expiresAt
}

func (c *MemoryTokenCache) Invalidate(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiresAt = time.Time{}
}

// RedisOptions configures a RedisTokenCache.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RedisTokenCache shares the session token between replicas. Redis errors
// are logged and treated as a cache miss so the provider stays reachable.
type RedisTokenCache struct {
	client *redis.Client
	key    string
	logger log.FieldLogger
}

// NewRedisTokenCache connects to Redis and verifies the connection.
func NewRedisTokenCache(opts RedisOptions, logger log.FieldLogger) (*RedisTokenCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	key := opts.Key
	if key == "" {
		key = "gpswox:session"
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &RedisTokenCache{client: client, key: key, logger: logger}, nil
}

func (c *RedisTokenCache) Get(ctx context.Context) (string, bool) {
	token, err := c.client.Get(ctx, c.key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.logger.WithError(err).Warn("Session cache read failed")
		return "", false
	}
	return token, token != ""
}

func (c *RedisTokenCache) Set(ctx context.Context, token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if err := c.client.Set(ctx, c.key, token, ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("Session cache write failed")
	}
}

func (c *RedisTokenCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		c.logger.WithError(err).Warn("Session cache eviction failed")
	}
}

// Close closes the Redis connection.
func (c *RedisTokenCache) Close() error {
	return c.client.Close()
}
