package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultInvalidationChannel is the Pub/Sub channel for snapshot invalidations
	DefaultInvalidationChannel = "ledger:snapshot:invalidate"

	defaultCloseTimeout = 5 * time.Second
)

// RedisSnapshotInvalidator broadcasts snapshot invalidations over Redis Pub/Sub
// so that every instance drops its local copy.
type RedisSnapshotInvalidator struct {
	client     *redis.Client
	ownsClient bool
	channel    string
	logger     *zap.Logger
	cancelFn   context.CancelFunc
	doneCh     chan struct{}
	doneOnce   sync.Once
	mu         sync.Mutex
	isRunning  bool
}

// RedisSnapshotInvalidatorOption configures the invalidator
type RedisSnapshotInvalidatorOption func(*RedisSnapshotInvalidator)

// WithInvalidatorChannel sets the Pub/Sub channel name
func WithInvalidatorChannel(channel string) RedisSnapshotInvalidatorOption {
	return func(i *RedisSnapshotInvalidator) {
		if channel != "" {
			i.channel = channel
		}
	}
}

// WithInvalidatorLogger sets the logger
func WithInvalidatorLogger(logger *zap.Logger) RedisSnapshotInvalidatorOption {
	return func(i *RedisSnapshotInvalidator) {
		i.logger = logger
	}
}

// NewRedisSnapshotInvalidator connects to Redis and returns an invalidator that owns the client
func NewRedisSnapshotInvalidator(ctx context.Context, cfg RedisConfig, opts ...RedisSnapshotInvalidatorOption) (*RedisSnapshotInvalidator, error) {
	client, err := newRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	i := NewRedisSnapshotInvalidatorWithClient(client, opts...)
	i.ownsClient = true
	return i, nil
}

// NewRedisSnapshotInvalidatorWithClient creates an invalidator over a shared client
func NewRedisSnapshotInvalidatorWithClient(client *redis.Client, opts ...RedisSnapshotInvalidatorOption) *RedisSnapshotInvalidator {
	i := &RedisSnapshotInvalidator{
		client:  client,
		channel: DefaultInvalidationChannel,
		logger:  zap.NewNop(),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Publish sends an invalidation to all subscribers
func (i *RedisSnapshotInvalidator) Publish(ctx context.Context, msg ledger.InvalidationMessage) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixNano()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		i.logger.Error("Failed to publish snapshot invalidation",
			zap.String("channel", i.channel),
			zap.Error(err))
		return fmt.Errorf("failed to publish message: %w", err)
	}

	i.logger.Debug("Published snapshot invalidation",
		zap.String("tenant_id", msg.TenantID.String()),
		zap.String("source", msg.Source))
	return nil
}

// Subscribe blocks delivering invalidations to callback until ctx is cancelled
// or Close is called.
func (i *RedisSnapshotInvalidator) Subscribe(ctx context.Context, callback func(msg ledger.InvalidationMessage)) error {
	i.mu.Lock()
	if i.isRunning {
		i.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	i.isRunning = true
	subCtx, cancel := context.WithCancel(ctx)
	i.cancelFn = cancel
	i.mu.Unlock()

	defer func() {
		i.mu.Lock()
		i.isRunning = false
		i.mu.Unlock()
		i.markDone()
	}()

	pubsub := i.client.Subscribe(subCtx, i.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}
	i.logger.Info("Subscribed to snapshot invalidation channel", zap.String("channel", i.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			i.logger.Info("Snapshot invalidation subscription stopped")
			return subCtx.Err()
		case m, ok := <-ch:
			if !ok {
				i.logger.Warn("Snapshot invalidation channel closed")
				return nil
			}

			var msg ledger.InvalidationMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				i.logger.Error("Failed to unmarshal snapshot invalidation",
					zap.String("payload", m.Payload),
					zap.Error(err))
				continue
			}
			i.deliver(callback, msg)
		}
	}
}

func (i *RedisSnapshotInvalidator) deliver(callback func(ledger.InvalidationMessage), msg ledger.InvalidationMessage) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("Panic in snapshot invalidation callback", zap.Any("panic", r))
		}
	}()
	callback(msg)
}

func (i *RedisSnapshotInvalidator) markDone() {
	i.doneOnce.Do(func() {
		close(i.doneCh)
	})
}

// Close stops the subscription and closes the client when owned
func (i *RedisSnapshotInvalidator) Close() error {
	i.mu.Lock()
	cancelFn := i.cancelFn
	i.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
		select {
		case <-i.doneCh:
		case <-time.After(defaultCloseTimeout):
			i.logger.Warn("Timeout waiting for subscription to stop")
		}
	}

	if i.ownsClient {
		return i.client.Close()
	}
	return nil
}

var _ ledger.CacheInvalidator = (*RedisSnapshotInvalidator)(nil)
