package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/finboard/pkg/eventbus"
	"github.com/redis/go-redis/v9"
)

// RedisEventBusConfig names the stream and consumer group a bus reads.
// Processes sharing a Group split the work; give each process its own
// Group to have every process see every event.
type RedisEventBusConfig struct {
	Stream   string
	Group    string
	Consumer string
	Block    time.Duration
}

// RedisEventBus implements eventbus.Bus on a Redis stream. Emit appends an
// envelope to the stream; a single reader per bus decodes entries and hands
// them to local handlers. Entries whose handling fails are copied to a
// dead-letter stream.
type RedisEventBus struct {
	client *redis.Client
	cfg    RedisEventBusConfig
	types  map[string]func() eventbus.Event
	local  *MemoryEventBus
	logger *slog.Logger

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewWithRedis creates a Redis-backed event bus and makes sure the stream's
// consumer group exists.
func NewWithRedis(
	ctx context.Context,
	client *redis.Client,
	cfg RedisEventBusConfig,
	types map[string]func() eventbus.Event,
	logger *slog.Logger,
) (*RedisEventBus, error) {
	if client == nil || cfg.Stream == "" {
		return nil, errors.New("redis event bus: client and stream are required")
	}
	if cfg.Group == "" {
		cfg.Group = "finboard"
	}
	if cfg.Consumer == "" {
		host, _ := os.Hostname()
		cfg.Consumer = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	if cfg.Block <= 0 {
		cfg.Block = 2 * time.Second
	}

	err := client.XGroupCreateMkStream(ctx, cfg.Stream, cfg.Group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("redis event bus: create group: %w", err)
	}

	logger = logger.With("component", "redis-event-bus", "stream", cfg.Stream)
	return &RedisEventBus{
		client: client,
		cfg:    cfg,
		types:  types,
		local:  NewWithMemory(logger),
		logger: logger,
		done:   make(chan struct{}),
	}, nil
}

// DLQStream is the stream failed entries are copied to.
func (b *RedisEventBus) DLQStream() string {
	return b.cfg.Stream + ":dlq"
}

// Emit publishes an event to the Redis stream.
func (b *RedisEventBus) Emit(ctx context.Context, event eventbus.Event) error {
	data, err := encodeEvent(event)
	if err != nil {
		b.logger.Error("failed to encode event", "error", err, "type", event.Type())
		return fmt.Errorf("redis event bus: %w", err)
	}
	err = b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.cfg.Stream,
		Values: map[string]any{"event": string(data)},
	}).Err()
	if err != nil {
		b.logger.Error("failed to emit event", "error", err, "type", event.Type())
		return fmt.Errorf("redis event bus: emit failed: %w", err)
	}
	b.logger.Debug("event emitted", "type", event.Type())
	return nil
}

// Register subscribes handler to eventType and starts the stream reader on
// first use.
func (b *RedisEventBus) Register(eventType string, handler eventbus.HandlerFunc) func() {
	unregister := b.local.Register(eventType, handler)
	b.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		b.cancel = cancel
		go b.run(ctx)
	})
	b.logger.Info("handler registered", "event_type", eventType)
	return unregister
}

// Close stops the stream reader and waits for it to exit. A bus closed
// before any Register never starts reading.
func (b *RedisEventBus) Close() error {
	b.startOnce.Do(func() { close(b.done) })
	if b.cancel != nil {
		b.cancel()
	}
	<-b.done
	return nil
}

func (b *RedisEventBus) run(ctx context.Context) {
	defer close(b.done)
	for {
		res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.cfg.Group,
			Consumer: b.cfg.Consumer,
			Streams:  []string{b.cfg.Stream, ">"},
			Count:    16,
			Block:    b.cfg.Block,
		}).Result()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				b.logger.Error("error reading from stream", "error", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
			}
			continue
		}
		for _, stream := range res {
			for _, msg := range stream.Messages {
				b.handle(ctx, msg)
			}
		}
	}
}

func (b *RedisEventBus) handle(ctx context.Context, msg redis.XMessage) {
	raw, _ := msg.Values["event"].(string)
	evt, err := decodeEvent([]byte(raw), b.types)
	if err == nil {
		err = b.local.dispatch(ctx, evt)
	}
	if err != nil {
		b.pushToDLQ(ctx, msg, err)
	}
	if err := b.client.XAck(ctx, b.cfg.Stream, b.cfg.Group, msg.ID).Err(); err != nil {
		b.logger.Error("failed to acknowledge message", "error", err, "msg_id", msg.ID)
	}
}

func (b *RedisEventBus) pushToDLQ(ctx context.Context, msg redis.XMessage, cause error) {
	values := map[string]any{"error": cause.Error(), "source_id": msg.ID}
	for k, v := range msg.Values {
		values[k] = v
	}
	if err := b.client.XAdd(ctx, &redis.XAddArgs{Stream: b.DLQStream(), Values: values}).Err(); err != nil {
		b.logger.Error("failed to push to DLQ", "error", err)
		return
	}
	b.logger.Warn("event pushed to DLQ", "msg_id", msg.ID, "cause", cause)
}

var _ eventbus.Bus = (*RedisEventBus)(nil)
