// Package razorpay verifies and parses the payment provider's webhook
// payloads.
package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/vendaro/vendaro/internal/payment/domain"
)

// SignatureHeader carries the hex HMAC-SHA256 digest of the raw body.
const SignatureHeader = "X-Razorpay-Signature"

// Verify checks the webhook signature against the shared secret. The
// digest is computed over the raw request bytes; re-serialized JSON
// breaks on key order and whitespace, so callers must pass the body
// exactly as received. Fails closed when no secret is configured.
func Verify(secret string, payload []byte, signature string) error {
	if strings.TrimSpace(secret) == "" {
		return domain.ErrInvalidSignature
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return domain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

type webhookEnvelope struct {
	ID        string         `json:"id"`
	Event     string         `json:"event"`
	CreatedAt int64          `json:"created_at"`
	Payload   webhookPayload `json:"payload"`
}

type webhookPayload struct {
	Payment paymentWrapper `json:"payment"`
}

type paymentWrapper struct {
	Entity paymentEntity `json:"entity"`
}

type paymentEntity struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Email    string            `json:"email"`
	Notes    map[string]string `json:"notes"`
}

// Parse decodes a verified payload into the tagged event form. Each
// recognized kind has its own validation; unrecognized kinds return
// ErrEventIgnored so the caller can ack without processing.
func Parse(payload []byte) (*domain.WebhookEvent, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(envelope.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	kind := strings.TrimSpace(envelope.Event)
	switch kind {
	case domain.EventKindPaymentCaptured,
		domain.EventKindSubscriptionActivated,
		domain.EventKindSubscriptionCharged:
		return parseEntitlement(envelope, kind)
	case domain.EventKindPaymentFailed:
		return parsePayment(envelope, kind)
	default:
		return nil, domain.ErrEventIgnored
	}
}

// parseEntitlement handles the kinds that grant or renew an
// entitlement; these must name a tier and carry a positive amount. A
// missing interval note means a monthly charge.
func parseEntitlement(envelope webhookEnvelope, kind string) (*domain.WebhookEvent, error) {
	event, err := parsePayment(envelope, kind)
	if err != nil {
		return nil, err
	}
	if event.Payment.Tier == "" || event.Payment.Amount <= 0 {
		return nil, domain.ErrInvalidPayload
	}
	if event.Payment.Interval == "" {
		event.Payment.Interval = "monthly"
	}
	return event, nil
}

func parsePayment(envelope webhookEnvelope, kind string) (*domain.WebhookEvent, error) {
	entity := envelope.Payload.Payment.Entity
	if strings.TrimSpace(entity.ID) == "" {
		return nil, domain.ErrInvalidPayload
	}
	sellerID := strings.TrimSpace(entity.Notes["seller_id"])
	if sellerID == "" {
		return nil, domain.ErrInvalidPayload
	}

	occurredAt := time.Now().UTC()
	if envelope.CreatedAt > 0 {
		occurredAt = time.Unix(envelope.CreatedAt, 0).UTC()
	}

	return &domain.WebhookEvent{
		ProviderEventID: envelope.ID,
		Kind:            kind,
		OccurredAt:      occurredAt,
		Payment: domain.PaymentPayload{
			PaymentID: entity.ID,
			SellerID:  sellerID,
			Tier:      strings.TrimSpace(entity.Notes["tier"]),
			Interval:  strings.TrimSpace(entity.Notes["interval"]),
			Amount:    entity.Amount,
			Currency:  strings.ToUpper(strings.TrimSpace(entity.Currency)),
			Email:     strings.TrimSpace(entity.Email),
		},
	}, nil
}
