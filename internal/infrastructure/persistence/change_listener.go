package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// DefaultChangeChannel is the NOTIFY channel written by the records trigger
const DefaultChangeChannel = "ledger_records_changed"

// ChangeNotification is the JSON payload sent by the records trigger
type ChangeNotification struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Table    string    `json:"table"`
	Op       string    `json:"op"`
}

// ParseChangeNotification decodes a NOTIFY payload.
// A bare tenant UUID is accepted as well as the JSON form.
func ParseChangeNotification(payload string) (ChangeNotification, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return ChangeNotification{}, errors.New("empty notification payload")
	}

	if !strings.HasPrefix(payload, "{") {
		id, err := uuid.Parse(payload)
		if err != nil {
			return ChangeNotification{}, fmt.Errorf("invalid tenant id in payload: %w", err)
		}
		return ChangeNotification{TenantID: id}, nil
	}

	var n ChangeNotification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return ChangeNotification{}, fmt.Errorf("invalid notification payload: %w", err)
	}
	if n.TenantID == uuid.Nil {
		return ChangeNotification{}, errors.New("notification payload has no tenant_id")
	}
	return n, nil
}

// ChangeListener turns Postgres NOTIFY messages into RecordsChangedEvents
type ChangeListener struct {
	connString     string
	channel        string
	publisher      shared.EventPublisher
	logger         *zap.Logger
	reconnectDelay time.Duration
}

// ChangeListenerOption configures a ChangeListener
type ChangeListenerOption func(*ChangeListener)

// WithChannel sets the LISTEN channel
func WithChannel(channel string) ChangeListenerOption {
	return func(l *ChangeListener) {
		if channel != "" {
			l.channel = channel
		}
	}
}

// WithReconnectDelay sets the pause between reconnect attempts
func WithReconnectDelay(d time.Duration) ChangeListenerOption {
	return func(l *ChangeListener) {
		if d > 0 {
			l.reconnectDelay = d
		}
	}
}

// WithListenerLogger sets the listener logger
func WithListenerLogger(logger *zap.Logger) ChangeListenerOption {
	return func(l *ChangeListener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewChangeListener creates a new ChangeListener
func NewChangeListener(connString string, publisher shared.EventPublisher, opts ...ChangeListenerOption) *ChangeListener {
	l := &ChangeListener{
		connString:     connString,
		channel:        DefaultChangeChannel,
		publisher:      publisher,
		logger:         zap.NewNop(),
		reconnectDelay: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Channel returns the LISTEN channel
func (l *ChangeListener) Channel() string {
	return l.channel
}

// Run listens until ctx is cancelled, reconnecting after connection failures
func (l *ChangeListener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		l.logger.Warn("Change listener disconnected, reconnecting",
			zap.String("channel", l.channel),
			zap.Duration("delay", l.reconnectDelay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.reconnectDelay):
		}
	}
}

func (l *ChangeListener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.connString)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.channel, err)
	}
	l.logger.Info("Listening for ledger record changes", zap.String("channel", l.channel))

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.handle(ctx, notification.Payload)
	}
}

func (l *ChangeListener) handle(ctx context.Context, payload string) {
	n, err := ParseChangeNotification(payload)
	if err != nil {
		l.logger.Warn("Ignoring malformed change notification",
			zap.String("channel", l.channel),
			zap.String("payload", payload),
			zap.Error(err),
		)
		return
	}

	event := ledger.NewRecordsChangedEvent(n.TenantID, "pg_notify", n.Table)
	if err := l.publisher.Publish(ctx, event); err != nil {
		l.logger.Error("Failed to publish records changed event",
			zap.String("tenant_id", n.TenantID.String()),
			zap.String("table", n.Table),
			zap.Error(err),
		)
	}
}
