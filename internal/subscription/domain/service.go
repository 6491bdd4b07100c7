package domain

import (
	"context"
	"errors"
	"time"
)

// ActivationRequest carries a verified, de-duplicated payment-captured
// event into the entitlement activator.
type ActivationRequest struct {
	SellerID          string
	Tier              Tier
	Interval          BillingInterval
	Amount            int64
	Currency          string
	ProviderPaymentID string
	BillingEmail      string
	OccurredAt        time.Time
}

// UpgradeRequest is the pre-payment step: it returns a provider order
// descriptor for the client to complete payment against. Entitlement is
// only granted later, by the verified webhook.
type UpgradeRequest struct {
	SellerID string
	Tier     Tier
	Interval BillingInterval
}

type UpgradeDescriptor struct {
	ProviderOrderID string          `json:"provider_order_id"`
	Amount          int64           `json:"amount"`
	Currency        string          `json:"currency"`
	Tier            Tier            `json:"tier"`
	Interval        BillingInterval `json:"interval"`
}

type Service interface {
	// Activate applies a payment-captured event: lazily creates the
	// subscription, freezes the tier feature bundle, appends the history
	// entry for the previous tier and advances the billing dates.
	Activate(ctx context.Context, req ActivationRequest) (*Subscription, error)

	// RecordFailedPayment only triggers the failure notification; the
	// subscription itself is untouched.
	RecordFailedPayment(ctx context.Context, sellerID, providerPaymentID, billingEmail string)

	GetBySellerID(ctx context.Context, sellerID string) (*Subscription, error)
	PrepareUpgrade(ctx context.Context, req UpgradeRequest) (*UpgradeDescriptor, error)
}

var (
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrInvalidSeller        = errors.New("invalid_seller")
	ErrInvalidTier          = errors.New("invalid_tier")
	ErrInvalidInterval      = errors.New("invalid_billing_interval")
	ErrInvalidAmount        = errors.New("invalid_amount")
)
