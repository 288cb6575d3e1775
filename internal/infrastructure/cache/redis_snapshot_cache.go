package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultSnapshotKeyPrefix namespaces snapshot keys in Redis
const DefaultSnapshotKeyPrefix = "ledger:snapshot:"

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func newRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisSnapshotCache stores JSON-encoded snapshots in Redis so every instance
// shares one copy per tenant.
type RedisSnapshotCache struct {
	client     *redis.Client
	ownsClient bool
	keyPrefix  string
}

// NewRedisSnapshotCache connects to Redis and returns a cache that owns the client
func NewRedisSnapshotCache(ctx context.Context, cfg RedisConfig, keyPrefix string) (*RedisSnapshotCache, error) {
	client, err := newRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c := NewRedisSnapshotCacheWithClient(client, keyPrefix)
	c.ownsClient = true
	return c, nil
}

// NewRedisSnapshotCacheWithClient creates a cache over a shared client.
// The caller keeps ownership of the client.
func NewRedisSnapshotCacheWithClient(client *redis.Client, keyPrefix string) *RedisSnapshotCache {
	if keyPrefix == "" {
		keyPrefix = DefaultSnapshotKeyPrefix
	}
	return &RedisSnapshotCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (c *RedisSnapshotCache) key(tenantID uuid.UUID) string {
	return c.keyPrefix + tenantID.String()
}

// Get returns the cached snapshot, or nil on a miss
func (c *RedisSnapshotCache) Get(ctx context.Context, tenantID uuid.UUID) (*ledger.Snapshot, error) {
	data, err := c.client.Get(ctx, c.key(tenantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snap ledger.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// Set stores the snapshot with the given ttl. A non-positive ttl stores nothing.
func (c *RedisSnapshotCache) Set(ctx context.Context, snap *ledger.Snapshot, ttl time.Duration) error {
	if snap == nil || ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.key(snap.TenantID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot: %w", err)
	}
	return nil
}

// Delete drops the tenant's snapshot
func (c *RedisSnapshotCache) Delete(ctx context.Context, tenantID uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(tenantID)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// Close closes the client when the cache owns it
func (c *RedisSnapshotCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

// GetClient returns the underlying Redis client
func (c *RedisSnapshotCache) GetClient() *redis.Client {
	return c.client
}

var _ ledger.SnapshotCache = (*RedisSnapshotCache)(nil)
