// Package event is the in-process event bus that carries record change
// notifications to the snapshot cache.
package event

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ErrBusStopped is returned when publishing to a stopped bus
var ErrBusStopped = errors.New("event bus stopped")

// InMemoryEventBus dispatches events synchronously, in registration order.
// A handler that fails or panics is logged and the rest still run.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	stopped  atomic.Bool
}

func NewInMemoryEventBus(log *zap.Logger) *InMemoryEventBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   log.Named("event_bus"),
	}
}

// Publish delivers events to their handlers. Handler failures are not
// returned to the publisher.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if b.stopped.Load() {
		return ErrBusStopped
	}
	log := logger.For(ctx, b.logger)
	for _, ev := range events {
		handlers := b.registry.Handlers(ev.EventType())
		if len(handlers) == 0 {
			log.Debug("No handler for event", zap.String("event_type", ev.EventType()))
			continue
		}
		for _, h := range handlers {
			if err := deliver(ctx, h, ev); err != nil {
				log.Error("Event handler failed",
					zap.String("event_type", ev.EventType()),
					zap.Stringer("event_id", ev.EventID()),
					zap.Stringer("event_tenant_id", ev.TenantID()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// deliver turns a handler panic into an error
func deliver(ctx context.Context, h shared.EventHandler, ev shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, ev)
}

// Subscribe registers handler for eventTypes, falling back to the
// handler's own EventTypes.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("Handler subscribed", zap.Strings("event_types", eventTypes))
}

func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start reopens the bus. It never blocks.
func (b *InMemoryEventBus) Start(context.Context) error {
	b.stopped.Store(false)
	b.logger.Info("Event bus started", zap.Strings("event_types", b.registry.Types()))
	return nil
}

// Stop rejects further publishes. Deliveries already running finish.
func (b *InMemoryEventBus) Stop(context.Context) error {
	if b.stopped.Swap(true) {
		return nil
	}
	b.logger.Info("Event bus stopped")
	return nil
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
