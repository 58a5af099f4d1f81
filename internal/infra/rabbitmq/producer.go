package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"phev-gateway/internal/config"
	"phev-gateway/internal/infra/mq"
)

var (
	ErrClosed       = errors.New("rabbitmq: producer closed")
	ErrNotConnected = errors.New("rabbitmq: not connected")
)

const reconnectDelay = 5 * time.Second

type Producer struct {
	cfg    config.RabbitMQConfig
	logger *zap.Logger

	mu         sync.Mutex
	conn       *amqp.Connection
	ch         *amqp.Channel
	isClosed   bool
	reconnectC chan struct{}
}

var _ mq.Producer = (*Producer)(nil)

// NewProducer returns immediately; the first connection is made in the
// background and Produce fails with ErrNotConnected until it succeeds.
func NewProducer(cfg config.RabbitMQConfig, logger *zap.Logger) (*Producer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("rabbitmq: url not configured")
	}
	p := &Producer{
		cfg:        cfg,
		logger:     logger,
		reconnectC: make(chan struct{}, 1),
	}

	go func() {
		if err := p.connect(); err != nil {
			p.logger.Warn("Initial RabbitMQ connection failed, will retry", zap.Error(err))
			p.signalReconnect()
		}
	}()
	go p.handleReconnect()

	return p, nil
}

// connectionURL applies cfg.VirtualHost to cfg.URL. A leading "/" in the vhost
// is escaped to %2f.
func connectionURL(cfg config.RabbitMQConfig) string {
	if cfg.VirtualHost == "" {
		return cfg.URL
	}
	vhost := cfg.VirtualHost
	if strings.HasPrefix(vhost, "/") {
		vhost = "%2f" + vhost[1:]
	}

	scheme, rest, ok := strings.Cut(cfg.URL, "://")
	if !ok {
		return strings.TrimSuffix(cfg.URL, "/") + "/" + vhost
	}
	host, _, _ := strings.Cut(rest, "/")
	return scheme + "://" + host + "/" + vhost
}

func maskURL(raw string) string {
	u, err := amqp.ParseURI(raw)
	if err != nil {
		return raw
	}
	if u.Password != "" {
		u.Password = "******"
	}
	return u.String()
}

func (p *Producer) connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	url := connectionURL(p.cfg)
	p.logger.Debug("Connecting to RabbitMQ", zap.String("url", maskURL(url)))

	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open a channel: %w", err)
	}

	// topic exchange, durable
	if err := ch.ExchangeDeclare(p.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", p.cfg.Exchange, err)
	}

	if p.cfg.QueueName != "" {
		if _, err := ch.QueueDeclare(p.cfg.QueueName, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("failed to declare queue %s: %w", p.cfg.QueueName, err)
		}
		if err := ch.QueueBind(p.cfg.QueueName, p.bindingKey(), p.cfg.Exchange, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("failed to bind queue %s: %w", p.cfg.QueueName, err)
		}
	}

	p.conn = conn
	p.ch = ch

	go func() {
		<-conn.NotifyClose(make(chan *amqp.Error, 1))
		p.signalReconnect()
	}()

	p.logger.Info("Connected to RabbitMQ",
		zap.String("url", maskURL(url)),
		zap.String("exchange", p.cfg.Exchange))
	return nil
}

// bindingKey binds the queue to every event type when no routing key is set.
func (p *Producer) bindingKey() string {
	if p.cfg.RoutingKey == "" {
		return "phev.#"
	}
	return p.cfg.RoutingKey
}

func (p *Producer) signalReconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isClosed {
		return
	}
	select {
	case p.reconnectC <- struct{}{}:
	default:
	}
}

func (p *Producer) handleReconnect() {
	for range p.reconnectC {
		for {
			p.mu.Lock()
			closed := p.isClosed
			p.mu.Unlock()
			if closed {
				return
			}

			if err := p.connect(); err != nil {
				p.logger.Error("Failed to reconnect to RabbitMQ", zap.Error(err))
				time.Sleep(reconnectDelay)
				continue
			}
			p.logger.Info("Reconnected to RabbitMQ")
			break
		}
	}
}

// Produce publishes data on the exchange. key overrides the configured routing key.
func (p *Producer) Produce(ctx context.Context, topic string, key string, data interface{}) error {
	p.mu.Lock()
	if p.isClosed {
		p.mu.Unlock()
		return ErrClosed
	}
	ch := p.ch
	p.mu.Unlock()

	if ch == nil || ch.IsClosed() {
		p.signalReconnect()
		return ErrNotConnected
	}

	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	routingKey := p.cfg.RoutingKey
	if key != "" {
		routingKey = key
	}

	err = ch.PublishWithContext(ctx, p.cfg.Exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Type:        topic,
		Body:        body,
		Timestamp:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.Debug("Published message to RabbitMQ",
		zap.String("exchange", p.cfg.Exchange),
		zap.String("routing_key", routingKey))
	return nil
}

func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isClosed {
		return
	}
	p.isClosed = true
	close(p.reconnectC)
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
