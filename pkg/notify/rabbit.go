package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/example/farmashop/pkg/config"
	"github.com/example/farmashop/pkg/orderflow"
)

// RabbitNotifier publishes customer notifications to a durable queue consumed
// by the mailer worker. Implements orderflow.Notifier.
type RabbitNotifier struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	queue   string
	logger  *zap.Logger
}

func NewRabbitNotifier(cfg *config.RabbitConfig, logger *zap.Logger) (*RabbitNotifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		cfg.Queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", cfg.Queue, err)
	}

	return &RabbitNotifier{conn: conn, channel: ch, queue: cfg.Queue, logger: logger}, nil
}

func (n *RabbitNotifier) NotifyCustomer(ctx context.Context, notification orderflow.CustomerNotification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	err = n.channel.PublishWithContext(ctx,
		"",      // default exchange
		n.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    notification.MessageID,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	n.logger.Info("customer notification queued",
		zap.String("message_id", notification.MessageID),
		zap.String("numero_pedido", notification.OrderNumber))
	return nil
}

func (n *RabbitNotifier) Close() error {
	if err := n.channel.Close(); err != nil {
		n.conn.Close()
		return err
	}
	return n.conn.Close()
}
