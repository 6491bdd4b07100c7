package events

import (
	"context"
	"encoding/json"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingProvider struct {
	to      []string
	subject string
	body    string
	calls   int
}

func (p *recordingProvider) Send(ctx context.Context, to []string, subject string, body string) error {
	p.calls++
	p.to = to
	p.subject = subject
	p.body = body
	return nil
}

func delivery(t *testing.T, n Notification) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(n)
	require.NoError(t, err)
	return amqp.Delivery{Body: body}
}

func TestConsumerDeliversToRecipient(t *testing.T) {
	provider := &recordingProvider{}
	consumer := NewConsumer(nil, "notifications", provider, zap.NewNop())

	consumer.handle(context.Background(), delivery(t, Notification{
		Kind:    KindOrderStatusChanged,
		OrderID: "42",
		Subject: "Order VD-42 shipped",
		Body:    "Your order VD-42 is now shipped.",
		Metadata: map[string]string{
			"email": "buyer@example.com",
		},
	}))

	require.Equal(t, 1, provider.calls)
	assert.Equal(t, []string{"buyer@example.com"}, provider.to)
	assert.Equal(t, "Order VD-42 shipped", provider.subject)
	assert.Equal(t, "Your order VD-42 is now shipped.", provider.body)
}

func TestConsumerDropsNotificationWithoutRecipient(t *testing.T) {
	provider := &recordingProvider{}
	consumer := NewConsumer(nil, "notifications", provider, zap.NewNop())

	consumer.handle(context.Background(), delivery(t, Notification{
		Kind:    KindOrderStatusChanged,
		Subject: "Order VD-42 shipped",
		Body:    "Your order VD-42 is now shipped.",
	}))

	assert.Equal(t, 0, provider.calls)
}

func TestConsumerDiscardsMalformedMessage(t *testing.T) {
	provider := &recordingProvider{}
	consumer := NewConsumer(nil, "notifications", provider, zap.NewNop())

	consumer.handle(context.Background(), amqp.Delivery{Body: []byte("{not json")})

	assert.Equal(t, 0, provider.calls)
}
