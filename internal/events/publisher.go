package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPPublisher publishes notifications to a durable queue. Publish
// errors are swallowed and logged; the primary mutation already
// committed by the time we get here.
type AMQPPublisher struct {
	channel *amqp.Channel
	queue   string
	log     *zap.Logger
}

func NewAMQPPublisher(channel *amqp.Channel, queue string, log *zap.Logger) (*AMQPPublisher, error) {
	_, err := channel.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &AMQPPublisher{
		channel: channel,
		queue:   queue,
		log:     log.Named("events.publisher"),
	}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, n Notification) {
	body, err := json.Marshal(n)
	if err != nil {
		p.log.Warn("failed to encode notification", zap.String("kind", n.Kind), zap.Error(err))
		return
	}

	err = p.channel.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		p.log.Warn("failed to publish notification",
			zap.String("kind", n.Kind),
			zap.String("order_id", n.OrderID),
			zap.Error(err),
		)
	}
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct {
	log *zap.Logger
}

func NewNoopPublisher(log *zap.Logger) *NoopPublisher {
	return &NoopPublisher{log: log.Named("events.publisher")}
}

func (p *NoopPublisher) Publish(ctx context.Context, n Notification) {
	_ = ctx
	p.log.Debug("notification dropped, no broker configured", zap.String("kind", n.Kind))
}
