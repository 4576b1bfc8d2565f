// Package amqp publishes alerts to RabbitMQ for delivery by email.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/rabbitmq/amqp091-go"
)

const (
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

// Config names the exchange, queue and routing key alerts travel through.
type Config struct {
	URL        string
	Exchange   string
	Queue      string
	RoutingKey string
}

// Publisher implements notification.Notifier over a direct exchange. It
// only publishes alerts whose owner opted into email.
type Publisher struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewPublisher dials the broker, retrying with backoff up to attempts
// times, and declares the topology.
func NewPublisher(ctx context.Context, cfg Config, attempts int, logger *slog.Logger) (*Publisher, error) {
	if cfg.RoutingKey == "" {
		cfg.RoutingKey = cfg.Queue
	}
	p := &Publisher{cfg: cfg, logger: logger.With("notifier", "amqp", "exchange", cfg.Exchange)}
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := range attempts {
		if err = p.connect(); err == nil {
			return p, nil
		}
		if attempt == attempts-1 || !isConnectionError(err) {
			break
		}
		wait := exponentialBackoff(attempt)
		p.logger.Warn("AMQP connect failed, retrying", "attempt", attempt+1, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, err
}

func (p *Publisher) connect() error {
	conn, err := amqp091.Dial(p.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := setup(channel, p.cfg); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	p.conn, p.channel = conn, channel
	return nil
}

func setup(ch *amqp091.Channel, cfg Config) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(cfg.Queue, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (p *Publisher) Name() string { return "amqp" }

// Notify publishes the alert when the owner wants email. A publish that
// fails on a dead connection reconnects once and retries.
func (p *Publisher) Notify(ctx context.Context, a domain.Alert) error {
	if !a.Email {
		return nil
	}
	body, err := NewAlertMessage(a).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.publish(ctx, body)
	if isConnectionError(err) || errors.Is(err, amqp091.ErrClosed) {
		p.logger.Warn("AMQP connection lost, reconnecting", "error", err)
		p.closeLocked()
		if err = p.connect(); err == nil {
			err = p.publish(ctx, body)
		}
	}
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	p.logger.InfoContext(ctx, "Published alert", "type", a.Type, "owner", a.OwnerID, "queue", p.cfg.Queue)
	return nil
}

func (p *Publisher) publish(ctx context.Context, body []byte) error {
	if p.channel == nil {
		return amqp091.ErrClosed
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return p.channel.PublishWithContext(ctx, p.cfg.Exchange, p.cfg.RoutingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *Publisher) closeLocked() error {
	if p.channel != nil {
		_ = p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		if err != nil && !errors.Is(err, amqp091.ErrClosed) {
			return err
		}
	}
	return nil
}

// exponentialBackoff doubles from one second and caps at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
