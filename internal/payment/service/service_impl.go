package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/vendaro/vendaro/internal/clock"
	"github.com/vendaro/vendaro/internal/config"
	"github.com/vendaro/vendaro/internal/observability/metrics"
	"github.com/vendaro/vendaro/internal/payment/domain"
	"github.com/vendaro/vendaro/internal/payment/razorpay"
	subscription "github.com/vendaro/vendaro/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// dispatchTimeout bounds how long an in-flight dispatch claim blocks a
// redelivery. Razorpay retries minutes apart, so a claim older than this
// belongs to a delivery that died mid-dispatch.
const dispatchTimeout = time.Minute

type Params struct {
	fx.In

	Config        config.Config
	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          domain.Repository
	Subscriptions subscription.Service
	Metrics       *metrics.Metrics `optional:"true"`
}

type Service struct {
	secret        string
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          domain.Repository
	subscriptions subscription.Service
	metrics       *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		secret:        p.Config.WebhookSecret,
		db:            p.DB,
		log:           p.Log.Named("payment.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		subscriptions: p.Subscriptions,
		metrics:       p.Metrics,
	}
}

func (s *Service) Ingest(ctx context.Context, payload []byte, signature string) error {
	if err := razorpay.Verify(s.secret, payload, signature); err != nil {
		s.log.Warn("webhook signature rejected")
		s.metrics.RecordWebhookEvent("unknown", "rejected")
		return err
	}

	event, err := razorpay.Parse(payload)
	if err != nil {
		if errors.Is(err, domain.ErrEventIgnored) {
			s.log.Debug("ignoring unrecognized webhook event")
			s.metrics.RecordWebhookEvent("unknown", "ignored")
			return err
		}
		s.log.Warn("malformed webhook payload", zap.Error(err))
		s.metrics.RecordWebhookEvent("unknown", "invalid")
		return err
	}

	log := s.log.With(
		zap.String("provider_event_id", event.ProviderEventID),
		zap.String("kind", event.Kind),
	)

	now := s.clock.Now()
	record := &domain.EventRecord{
		ID:              s.genID.Generate(),
		ProviderEventID: event.ProviderEventID,
		Kind:            event.Kind,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      now,
		DispatchedAt:    &now,
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, record)
	if err != nil {
		return err
	}
	if !inserted {
		existing, err := s.repo.FindEvent(ctx, s.db, event.ProviderEventID)
		if err != nil {
			return err
		}
		if existing == nil {
			// Claimed by a concurrent delivery that has not committed its
			// row yet from our snapshot's point of view. Treat as handled.
			s.metrics.RecordWebhookEvent(event.Kind, "duplicate")
			return domain.ErrEventAlreadyProcessed
		}
		if existing.ProcessedAt != nil {
			log.Info("dropping redelivered webhook event")
			s.metrics.RecordWebhookEvent(event.Kind, "duplicate")
			return domain.ErrEventAlreadyProcessed
		}
		// The row exists but is unprocessed. Either the earlier delivery
		// died before MarkProcessed, or it is dispatching right now. The
		// atomic claim settles it: only a stale claim may be taken over.
		claimed, err := s.repo.ClaimUnprocessed(ctx, s.db, existing.ID, now, now.Add(-dispatchTimeout))
		if err != nil {
			return err
		}
		if !claimed {
			log.Info("dropping webhook event with dispatch in flight")
			s.metrics.RecordWebhookEvent(event.Kind, "duplicate")
			return domain.ErrEventAlreadyProcessed
		}
		record = existing
	}

	if err := s.dispatch(ctx, event); err != nil {
		log.Error("webhook event dispatch failed", zap.Error(err))
		s.metrics.RecordWebhookEvent(event.Kind, "failed")
		return err
	}

	if err := s.repo.MarkProcessed(ctx, s.db, record.ID, s.clock.Now()); err != nil {
		return err
	}

	log.Info("webhook event processed")
	s.metrics.RecordWebhookEvent(event.Kind, "processed")
	return nil
}

func (s *Service) dispatch(ctx context.Context, event *domain.WebhookEvent) error {
	switch event.Kind {
	case domain.EventKindPaymentCaptured,
		domain.EventKindSubscriptionActivated,
		domain.EventKindSubscriptionCharged:
		_, err := s.subscriptions.Activate(ctx, subscription.ActivationRequest{
			SellerID:          event.Payment.SellerID,
			Tier:              subscription.Tier(event.Payment.Tier),
			Interval:          subscription.BillingInterval(event.Payment.Interval),
			Amount:            event.Payment.Amount,
			Currency:          event.Payment.Currency,
			ProviderPaymentID: event.Payment.PaymentID,
			BillingEmail:      event.Payment.Email,
			OccurredAt:        event.OccurredAt,
		})
		return err
	case domain.EventKindPaymentFailed:
		s.subscriptions.RecordFailedPayment(ctx, event.Payment.SellerID, event.Payment.PaymentID, event.Payment.Email)
		return nil
	default:
		return domain.ErrEventIgnored
	}
}
