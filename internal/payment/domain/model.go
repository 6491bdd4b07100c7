// Package domain contains the inbound payment webhook model.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EventRecord is the idempotency log: one row per external event id.
// The unique index on ProviderEventID is the claim: a second delivery
// of the same id cannot insert and is treated as already handled.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex"`
	Kind            string         `json:"kind" gorm:"type:text;not null"`
	Payload         datatypes.JSON `json:"payload"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	// DispatchedAt marks the delivery currently driving the dispatch.
	// A row with ProcessedAt nil and a recent DispatchedAt is in flight;
	// only a stale one may be re-claimed by a redelivery.
	DispatchedAt *time.Time `json:"dispatched_at"`
	ProcessedAt  *time.Time `json:"processed_at"`
}

func (EventRecord) TableName() string { return "webhook_events" }

// Recognized event kinds. Anything else is acknowledged and ignored.
const (
	EventKindPaymentCaptured       = "payment.captured"
	EventKindPaymentFailed         = "payment.failed"
	EventKindSubscriptionActivated = "subscription.activated"
	EventKindSubscriptionCharged   = "subscription.charged"
)

// WebhookEvent is the parsed, tagged form of an inbound payload.
type WebhookEvent struct {
	ProviderEventID string
	Kind            string
	OccurredAt      time.Time
	Payment         PaymentPayload
}

// PaymentPayload is the payment entity common to all recognized kinds.
type PaymentPayload struct {
	PaymentID string
	SellerID  string
	Tier      string
	Interval  string
	Amount    int64
	Currency  string
	Email     string
}

var (
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
)
