package events

import (
	"context"
	"encoding/json"
	"fmt"

	"history-guide/utils/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
	Close() error
}

// RabbitPublisher publishes JSON events to a durable topic exchange.
type RabbitPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &RabbitPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *RabbitPublisher) PublishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         b,
	})
}

func (p *RabbitPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// LogPublisher is used when no broker is configured; events are only logged.
type LogPublisher struct{}

var _ Publisher = LogPublisher{}

func (LogPublisher) PublishJSON(_ context.Context, key string, v any) error {
	logger.Zlog.Info("Event", zap.String("key", key), zap.Any("payload", v))
	return nil
}

func (LogPublisher) Close() error {
	return nil
}
