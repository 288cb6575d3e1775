package integration

import (
	"context"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T) config.RedisConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return config.RedisConfig{Host: host, Port: port.Int()}
}

func newTieredBundle(t *testing.T, redisCfg config.RedisConfig) *cache.SnapshotCacheBundle {
	t.Helper()
	cacheCfg := config.CacheConfig{
		Backend:       "redis",
		SnapshotTTL:   time.Minute,
		KeyPrefix:     "ledger_test:snapshot:",
		PubSubChannel: "ledger_test:snapshot:invalidate",
	}
	bundle, err := cache.NewSnapshotCacheFactory(cacheCfg, redisCfg, cache.WithLogger(zap.NewNop())).Create(context.Background())
	require.NoError(t, err)
	require.NotNil(t, bundle.Tiered)
	t.Cleanup(func() { _ = bundle.Close() })
	return bundle
}

func testSnapshot(tenantID uuid.UUID) *ledger.Snapshot {
	return &ledger.Snapshot{
		TenantID: tenantID,
		Orders: []ledger.Order{{
			ID:           "o-1",
			OwnerID:      tenantID,
			CustomerName: "Giang",
			Status:       ledger.OrderStatusConfirmed,
			TotalAmount:  decimal.NewNullDecimal(decimal.RequireFromString("1250.50")),
			OrderDate:    day(2024, 4, 1),
		}},
		LoadedAt: time.Date(2024, 4, 15, 8, 0, 0, 0, time.UTC),
	}
}

func TestTieredSnapshotCache_Redis(t *testing.T) {
	redisCfg := newTestRedis(t)
	ctx := context.Background()
	tenantID := uuid.New()

	a := newTieredBundle(t, redisCfg)
	b := newTieredBundle(t, redisCfg)
	require.NoError(t, a.Ping(ctx))

	subCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	go func() { _ = b.Tiered.StartInvalidationSubscription(subCtx) }()

	t.Run("snapshot survives the redis round trip", func(t *testing.T) {
		require.NoError(t, a.Cache.Set(ctx, testSnapshot(tenantID), time.Minute))

		got, err := b.Cache.Get(ctx, tenantID)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Len(t, got.Orders, 1)
		assert.True(t, got.Orders[0].TotalAmount.Valid)
		assert.True(t, got.Orders[0].TotalAmount.Decimal.Equal(decimal.RequireFromString("1250.50")))
		assert.Equal(t, tenantID, got.TenantID)
	})

	t.Run("delete on one instance drops the peer's local copy", func(t *testing.T) {
		// b now holds the snapshot in L1; remove the shared copy behind its back
		raw := redis.NewClient(&redis.Options{Addr: redisCfg.Addr()})
		t.Cleanup(func() { _ = raw.Close() })
		require.NoError(t, raw.Del(ctx, "ledger_test:snapshot:"+tenantID.String()).Err())

		got, err := b.Cache.Get(ctx, tenantID)
		require.NoError(t, err)
		require.NotNil(t, got, "served from the local tier")

		// the subscription may still be connecting, so repeat the broadcast
		assert.Eventually(t, func() bool {
			if err := a.Cache.Delete(ctx, tenantID); err != nil {
				return false
			}
			time.Sleep(20 * time.Millisecond)
			got, err := b.Cache.Get(ctx, tenantID)
			return err == nil && got == nil
		}, 5*time.Second, 50*time.Millisecond, "peer kept a stale snapshot")
	})
}
