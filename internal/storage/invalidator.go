package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/world"
)

// Invalidator рассылает другим узлам сведения о перезаписанных чанках,
// чтобы они сбросили свой кеш чтения
type Invalidator interface {
	Publish(ctx context.Context, c world.ChunkCoord) error
	Subscribe(handler func(world.ChunkCoord)) error
	Close() error
}

// NATSConfig настройки подключения к NATS
type NATSConfig struct {
	URL           string
	Subject       string
	MaxReconnects int
	ReconnectWait time.Duration
}

// invalidationMessage сообщение об изменённом чанке
type invalidationMessage struct {
	X      int32     `json:"x"`
	Y      int32     `json:"y"`
	NodeID string    `json:"node_id"`
	At     time.Time `json:"at"`
}

// NATSInvalidator Invalidator поверх NATS Pub/Sub
type NATSInvalidator struct {
	conn    *nats.Conn
	subject string
	nodeID  string

	mu  sync.Mutex
	sub *nats.Subscription

	publishedCount int64
	receivedCount  int64
	errorsCount    int64

	log *logging.Logger
}

// NewNATSInvalidator подключается к NATS. Каждый экземпляр получает свой nodeID
// и игнорирует собственные сообщения.
func NewNATSInvalidator(cfg NATSConfig) (*NATSInvalidator, error) {
	if cfg.Subject == "" {
		cfg.Subject = "tileworld.chunks.invalidate"
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = 10
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	log := logging.GetStorageLogger()

	opts := []nats.Option{
		nats.Name("tileworld"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	}
	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info("NATS invalidator: %s (subject: %s)", cfg.URL, cfg.Subject)
	return &NATSInvalidator{
		conn:    conn,
		subject: cfg.Subject,
		nodeID:  uuid.NewString(),
		log:     log,
	}, nil
}

// Publish сообщает о перезаписи чанка
func (n *NATSInvalidator) Publish(_ context.Context, c world.ChunkCoord) error {
	data, err := json.Marshal(invalidationMessage{X: c.X, Y: c.Y, NodeID: n.nodeID, At: time.Now()})
	if err != nil {
		atomic.AddInt64(&n.errorsCount, 1)
		return err
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		atomic.AddInt64(&n.errorsCount, 1)
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	atomic.AddInt64(&n.publishedCount, 1)
	return nil
}

// Subscribe вызывает handler для чанков, перезаписанных другими узлами
func (n *NATSInvalidator) Subscribe(handler func(world.ChunkCoord)) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sub != nil {
		return fmt.Errorf("already subscribed to invalidations")
	}

	sub, err := n.conn.Subscribe(n.subject, func(msg *nats.Msg) {
		atomic.AddInt64(&n.receivedCount, 1)
		var m invalidationMessage
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			atomic.AddInt64(&n.errorsCount, 1)
			n.log.Error("Failed to unmarshal invalidation message: %v", err)
			return
		}
		if m.NodeID == n.nodeID {
			return
		}
		handler(world.ChunkCoord{X: m.X, Y: m.Y})
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to invalidations: %w", err)
	}
	n.sub = sub
	return nil
}

// Metrics счётчики публикаций и полученных сообщений
func (n *NATSInvalidator) Metrics() map[string]interface{} {
	return map[string]interface{}{
		"published_count": atomic.LoadInt64(&n.publishedCount),
		"received_count":  atomic.LoadInt64(&n.receivedCount),
		"errors_count":    atomic.LoadInt64(&n.errorsCount),
		"connected":       n.conn.IsConnected(),
	}
}

// Close отписывается и закрывает соединение
func (n *NATSInvalidator) Close() error {
	n.mu.Lock()
	if n.sub != nil {
		_ = n.sub.Unsubscribe()
		n.sub = nil
	}
	n.mu.Unlock()
	n.conn.Close()
	return nil
}
