// Package events is the fire-and-forget handoff for notifications.
// Publishing happens after the primary transaction commits; a failed or
// unconfigured broker is logged and never propagated.
package events

import "context"

const (
	KindOrderStatusChanged     = "order.status_changed"
	KindOrderReturnRequested   = "order.return_requested"
	KindOrderReturnProcessed   = "order.return_processed"
	KindSubscriptionActivated  = "subscription.activated"
	KindSubscriptionPaymentBad = "subscription.payment_failed"
)

// Notification is the message handed to the notification consumer.
type Notification struct {
	Kind       string            `json:"kind"`
	OrderID    string            `json:"order_id,omitempty"`
	SellerID   string            `json:"seller_id,omitempty"`
	CustomerID string            `json:"customer_id,omitempty"`
	Subject    string            `json:"subject"`
	Body       string            `json:"body"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Publisher dispatches notifications asynchronously. Implementations
// must never block the caller on broker availability.
type Publisher interface {
	Publish(ctx context.Context, n Notification)
}
