package messaging

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher implements fire-and-forget publish: publish to an
// exchange+routing-key with no reply expectation.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      *logrus.Entry
}

// NewPublisher connects to RabbitMQ and declares a durable topic
// exchange.
func NewPublisher(cfg PublisherConfig, log *logrus.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("messaging: connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("messaging: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("messaging: declare exchange %s: %w", cfg.Exchange, err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	entry := log.WithField("component", "publisher")
	entry.WithField("exchange", cfg.Exchange).Info("publisher initialized")
	return &Publisher{conn: conn, channel: ch, exchange: cfg.Exchange, log: entry}, nil
}

// Publish sends body to routingKey with no reply expectation.
func (p *Publisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	err := p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("messaging: publish to %s: %w", routingKey, err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// HealthCheck reports whether the underlying connection is open.
func (p *Publisher) HealthCheck() error {
	if p.conn == nil || p.conn.IsClosed() {
		return fmt.Errorf("messaging: publisher connection is closed")
	}
	return nil
}
