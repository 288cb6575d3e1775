package cache

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SnapshotCacheBundle is what the factory hands to the service host
type SnapshotCacheBundle struct {
	Cache ledger.SnapshotCache // nil when caching is disabled
	// Tiered is set when the Redis backend is in use; its invalidation
	// subscription must be started by the host.
	Tiered  *TieredSnapshotCache
	client  *redis.Client
	closers []func() error
}

// Ping checks the shared Redis backend; local-only bundles are always healthy
func (b *SnapshotCacheBundle) Ping(ctx context.Context) error {
	if b.client == nil {
		return nil
	}
	return b.client.Ping(ctx).Err()
}

// Close releases every resource the bundle owns
func (b *SnapshotCacheBundle) Close() error {
	var firstErr error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SnapshotCacheFactory creates snapshot caches based on configuration
type SnapshotCacheFactory struct {
	cacheConfig config.CacheConfig
	redisConfig config.RedisConfig
	logger      *zap.Logger
}

// SnapshotCacheFactoryOption configures the factory
type SnapshotCacheFactoryOption func(*SnapshotCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) SnapshotCacheFactoryOption {
	return func(f *SnapshotCacheFactory) {
		f.logger = logger
	}
}

// NewSnapshotCacheFactory creates a new factory
func NewSnapshotCacheFactory(cacheCfg config.CacheConfig, redisCfg config.RedisConfig, opts ...SnapshotCacheFactoryOption) *SnapshotCacheFactory {
	f := &SnapshotCacheFactory{
		cacheConfig: cacheCfg,
		redisConfig: redisCfg,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create builds the configured cache. With the redis backend an unreachable
// server falls back to the in-memory cache when AllowInMemoryFallback is set.
func (f *SnapshotCacheFactory) Create(ctx context.Context) (*SnapshotCacheBundle, error) {
	switch f.cacheConfig.Backend {
	case "none":
		f.logger.Info("Snapshot cache disabled")
		return &SnapshotCacheBundle{}, nil
	case "redis":
		bundle, err := f.createTiered(ctx)
		if err == nil {
			f.logger.Info("Using tiered Redis snapshot cache")
			return bundle, nil
		}
		if !f.cacheConfig.AllowInMemoryFallback {
			return nil, fmt.Errorf("redis snapshot cache unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory snapshot cache. "+
			"Instances will not share invalidations.",
			zap.Error(err))
		return f.createInMemory(), nil
	default:
		f.logger.Info("Using in-memory snapshot cache")
		return f.createInMemory(), nil
	}
}

func (f *SnapshotCacheFactory) createInMemory() *SnapshotCacheBundle {
	mem := NewInMemorySnapshotCache()
	return &SnapshotCacheBundle{
		Cache:   mem,
		closers: []func() error{mem.Close},
	}
}

func (f *SnapshotCacheFactory) createTiered(ctx context.Context) (*SnapshotCacheBundle, error) {
	redisCfg := RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}

	l2, err := NewRedisSnapshotCache(ctx, redisCfg, f.cacheConfig.KeyPrefix)
	if err != nil {
		return nil, err
	}
	invalidator := NewRedisSnapshotInvalidatorWithClient(l2.GetClient(),
		WithInvalidatorChannel(f.cacheConfig.PubSubChannel),
		WithInvalidatorLogger(f.logger.Named("snapshot_invalidator")),
	)
	l1 := NewInMemorySnapshotCache()
	tiered := NewTieredSnapshotCache(l1, l2, invalidator, WithTieredLogger(f.logger.Named("snapshot_cache")))

	return &SnapshotCacheBundle{
		Cache:   tiered,
		Tiered:  tiered,
		client:  l2.GetClient(),
		closers: []func() error{l2.Close, invalidator.Close, l1.Close},
	}, nil
}
