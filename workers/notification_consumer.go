package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"history-guide/events"
	"history-guide/utils/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type Config struct {
	RabbitURL   string
	Exchange    string
	Queue       string
	Bindings    []string
	Prefetch    int
	UseDLX      bool
	DLXName     string
	DLXQueue    string
	ServiceName string
}

// errMalformed marks a delivery that can never be handled, however often it is redelivered.
var errMalformed = errors.New("malformed payload")

// acknowledger is the part of amqp.Delivery used to settle a message.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// NotificationConsumer turns events from the broker into user notifications.
type NotificationConsumer struct {
	cfg      Config
	notifier Notifier

	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewNotificationConsumer(cfg Config, n Notifier) *NotificationConsumer {
	if len(cfg.Bindings) == 0 {
		cfg.Bindings = []string{events.RKPOIDwell, "notifications.*"}
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 8
	}
	return &NotificationConsumer{cfg: cfg, notifier: n}
}

func (c *NotificationConsumer) Connect() error {
	conn, err := amqp.Dial(c.cfg.RabbitURL)
	if err != nil {
		return fmt.Errorf("rabbit dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel failed: %w", err)
	}

	fail := func(err error) error {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	if err := ch.ExchangeDeclare(c.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fail(fmt.Errorf("declare exchange %s failed: %w", c.cfg.Exchange, err))
	}
	args := amqp.Table{}
	if c.cfg.UseDLX {
		args["x-dead-letter-exchange"] = c.cfg.DLXName
	}
	q, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, args)
	if err != nil {
		return fail(fmt.Errorf("declare queue failed: %w", err))
	}
	for _, key := range c.cfg.Bindings {
		if err := ch.QueueBind(q.Name, key, c.cfg.Exchange, false, nil); err != nil {
			return fail(fmt.Errorf("bind queue key=%s failed: %w", key, err))
		}
	}
	if c.cfg.UseDLX {
		if err := ch.ExchangeDeclare(c.cfg.DLXName, "topic", true, false, false, false, nil); err != nil {
			return fail(fmt.Errorf("declare dlx failed: %w", err))
		}
		if _, err := ch.QueueDeclare(c.cfg.DLXQueue, true, false, false, false, nil); err != nil {
			return fail(fmt.Errorf("declare dlq failed: %w", err))
		}
		if err := ch.QueueBind(c.cfg.DLXQueue, "#", c.cfg.DLXName, false, nil); err != nil {
			return fail(fmt.Errorf("bind dlq failed: %w", err))
		}
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return fail(fmt.Errorf("set qos failed: %w", err))
	}

	c.conn = conn
	c.ch = ch
	return nil
}

func (c *NotificationConsumer) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Start connects and consumes until ctx is cancelled, reconnecting after a
// lost connection.
func (c *NotificationConsumer) Start(ctx context.Context) error {
	const retryDelay = 5 * time.Second
	for {
		err := c.Connect()
		if err == nil {
			err = c.Run(ctx)
			c.Close()
		}
		if ctx.Err() != nil {
			return nil
		}
		logger.Zlog.Warn("Notification consumer stopped, retrying", zap.Error(err), zap.Duration("in", retryDelay))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(retryDelay):
		}
	}
}

func (c *NotificationConsumer) Run(ctx context.Context) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.cfg.Queue, c.cfg.ServiceName, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume failed: %w", err)
	}
	logger.Zlog.Info("Notification consumer started", zap.String("queue", c.cfg.Queue))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.settle(d, d.RoutingKey, d.Body)
		}
	}
}

// settle acks handled messages, requeues failed ones and drops malformed
// ones to the dead-letter exchange when one is configured.
func (c *NotificationConsumer) settle(d acknowledger, key string, body []byte) {
	err := c.handleDelivery(key, body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, errMalformed):
		logger.Zlog.Error("Rejecting malformed message", zap.String("key", key), zap.Bool("dlx", c.cfg.UseDLX), zap.Error(err))
		_ = d.Nack(false, false)
	default:
		logger.Zlog.Warn("Handle error, requeueing", zap.String("key", key), zap.Error(err))
		_ = d.Nack(false, true)
	}
}

func decode[T any](body []byte) (T, error) {
	ev, err := events.Decode[T](body)
	if err != nil {
		return ev, fmt.Errorf("%w: %w", errMalformed, err)
	}
	return ev, nil
}

func (c *NotificationConsumer) handleDelivery(key string, body []byte) error {
	switch key {
	case events.RKPOIDwell:
		ev, err := decode[events.POIDwell](body)
		if err != nil {
			return err
		}
		name := ev.POIName
		if name == "" {
			name = "a point of interest"
		}
		return c.notifier.Notify(ev.UserID, "Nearby history",
			fmt.Sprintf("You have been near %s for %s. Open the guide to learn more.", name, humanDuration(ev.EnteredAt, ev.FiredAt)))

	case events.RKNotificationsEnabled:
		ev, err := decode[events.NotificationsChanged](body)
		if err != nil {
			return err
		}
		return c.notifier.Notify(ev.UserID, "Nearby notifications on",
			fmt.Sprintf("You will be notified near %d points of interest.", ev.Geofences))

	case events.RKNotificationsDisabled:
		ev, err := decode[events.NotificationsChanged](body)
		if err != nil {
			return err
		}
		return c.notifier.Notify(ev.UserID, "Nearby notifications off", "You will no longer be notified near points of interest.")

	default:
		logger.Zlog.Debug("Skip unknown key", zap.String("key", key))
	}
	return nil
}
