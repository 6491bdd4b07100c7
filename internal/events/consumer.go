package events

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/vendaro/vendaro/internal/notifier"
	"go.uber.org/zap"
)

// Consumer drains the notification queue and drives the email provider.
// Delivery failures are logged and the message acked anyway: the
// notifier is best-effort and must not build retry storms.
type Consumer struct {
	channel  *amqp.Channel
	queue    string
	provider notifier.Provider
	log      *zap.Logger
}

func NewConsumer(channel *amqp.Channel, queue string, provider notifier.Provider, log *zap.Logger) *Consumer {
	return &Consumer{
		channel:  channel,
		queue:    queue,
		provider: provider,
		log:      log.Named("events.consumer"),
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.Consume(
		c.queue,
		"vendaro-notifier", // consumer tag
		false,              // auto-ack
		false,              // exclusive
		false,              // no-local
		false,              // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-deliveries:
				if !ok {
					return
				}
				c.handle(ctx, msg)
			}
		}
	}()
	return nil
}

func (c *Consumer) handle(ctx context.Context, msg amqp.Delivery) {
	defer func() {
		if err := msg.Ack(false); err != nil {
			c.log.Warn("failed to ack notification", zap.Error(err))
		}
	}()

	var n Notification
	if err := json.Unmarshal(msg.Body, &n); err != nil {
		c.log.Warn("discarding malformed notification", zap.Error(err))
		return
	}

	to := n.Metadata["email"]
	if to == "" {
		c.log.Debug("notification without recipient", zap.String("kind", n.Kind))
		return
	}

	if err := c.provider.Send(ctx, []string{to}, n.Subject, n.Body); err != nil {
		c.log.Warn("failed to send notification",
			zap.String("kind", n.Kind),
			zap.Error(err),
		)
	}
}
