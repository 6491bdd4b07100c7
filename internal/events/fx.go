package events

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/vendaro/vendaro/internal/config"
	"github.com/vendaro/vendaro/internal/notifier"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewPublisher wires the AMQP publisher when a broker is configured and
// falls back to the logged no-op otherwise, so webhook acks and order
// mutations never depend on broker availability.
func NewPublisher(lc fx.Lifecycle, cfg config.Config, provider notifier.Provider, log *zap.Logger) (Publisher, error) {
	if cfg.AMQPURL == "" {
		log.Info("amqp not configured, notifications disabled")
		return NewNoopPublisher(log), nil
	}

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, err
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	publisher, err := NewAMQPPublisher(channel, cfg.NotificationQueue, log)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, err
	}

	consumer := NewConsumer(channel, cfg.NotificationQueue, provider, log)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			// The delivery loop ends when OnStop closes the channel.
			return consumer.Start(context.Background())
		},
		OnStop: func(ctx context.Context) error {
			_ = ctx
			_ = channel.Close()
			return conn.Close()
		},
	})

	return publisher, nil
}

var Module = fx.Module("events",
	fx.Provide(NewPublisher),
)
