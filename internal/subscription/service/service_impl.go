package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/vendaro/vendaro/internal/analytics"
	"github.com/vendaro/vendaro/internal/clock"
	"github.com/vendaro/vendaro/internal/events"
	"github.com/vendaro/vendaro/internal/observability/metrics"
	"github.com/vendaro/vendaro/internal/subscription/domain"
	"github.com/vendaro/vendaro/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Publisher events.Publisher
	Analytics analytics.Recorder
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	publisher events.Publisher
	analytics analytics.Recorder
	metrics   *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("subscription.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		publisher: p.Publisher,
		analytics: p.Analytics,
		metrics:   p.Metrics,
	}
}

func (s *Service) Activate(ctx context.Context, req domain.ActivationRequest) (*domain.Subscription, error) {
	sellerID, err := s.parseID(req.SellerID)
	if err != nil {
		return nil, domain.ErrInvalidSeller
	}
	if !domain.IsValidTier(req.Tier) {
		return nil, domain.ErrInvalidTier
	}
	if !domain.IsValidInterval(req.Interval) {
		return nil, domain.ErrInvalidInterval
	}
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	plan, _ := domain.PlanFor(req.Tier)
	featuresJSON, err := json.Marshal(plan.Features)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	billedAt := req.OccurredAt.UTC()
	if billedAt.IsZero() {
		billedAt = now
	}
	nextBilling := advanceBillingDate(billedAt, req.Interval)

	var prevTier domain.Tier
	var subscription *domain.Subscription

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindBySellerIDForUpdate(ctx, tx, sellerID)
		if err != nil {
			return err
		}

		if existing == nil {
			// First payment event for this seller creates the record.
			existing = &domain.Subscription{
				ID:        s.genID.Generate(),
				SellerID:  sellerID,
				Tier:      domain.TierFree,
				Status:    domain.StatusActive,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repo.Insert(ctx, tx, existing); err != nil {
				// Two first-payment events can race past the missing-row
				// read; the unique index on seller_id picks one winner and
				// the loser re-reads under lock.
				if !db.IsDuplicateKeyErr(err) {
					return err
				}
				existing, err = s.repo.FindBySellerIDForUpdate(ctx, tx, sellerID)
				if err != nil {
					return err
				}
				if existing == nil {
					return domain.ErrSubscriptionNotFound
				}
			}
		}

		prevTier = existing.Tier
		periodStart := existing.CreatedAt
		if existing.UpgradeDate != nil {
			periodStart = *existing.UpgradeDate
		}

		// Record the tier that was active before the overwrite so the
		// audit trail reconstructs the full upgrade sequence.
		if err := s.repo.AppendHistory(ctx, tx, &domain.HistoryEntry{
			ID:             s.genID.Generate(),
			SubscriptionID: existing.ID,
			Tier:           prevTier,
			StartDate:      periodStart,
			EndDate:        now,
			Amount:         existing.Billing.Amount,
			Status:         existing.Status,
		}); err != nil {
			return err
		}

		existing.Tier = req.Tier
		existing.Status = domain.StatusActive
		existing.Features = datatypes.JSON(featuresJSON)
		existing.Billing = domain.BillingInfo{
			Amount:          req.Amount,
			Currency:        strings.ToUpper(strings.TrimSpace(req.Currency)),
			Interval:        req.Interval,
			LastBillingDate: &billedAt,
			NextBillingDate: &nextBilling,
			PaymentMethod:   req.ProviderPaymentID,
		}
		existing.MonthsSubscribed += intervalMonths(req.Interval)
		existing.UpgradeDate = &now

		if err := s.repo.Update(ctx, tx, existing); err != nil {
			return err
		}

		subscription = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Aggregates and notifications ride behind the commit; neither can
	// fail the activation or delay the webhook ack.
	monthlyRevenue := req.Amount / int64(intervalMonths(req.Interval))
	if err := s.analytics.RecordActivation(ctx, prevTier, req.Tier, monthlyRevenue); err != nil {
		s.log.Warn("failed to update tier aggregates",
			zap.String("seller_id", req.SellerID),
			zap.String("tier", string(req.Tier)),
			zap.Error(err),
		)
	}
	s.metrics.RecordActivation(string(req.Tier))
	s.publisher.Publish(ctx, events.Notification{
		Kind:     events.KindSubscriptionActivated,
		SellerID: req.SellerID,
		Subject:  fmt.Sprintf("Your %s plan is active", req.Tier),
		Body: fmt.Sprintf("Your %s subscription is active. Next billing date: %s.",
			req.Tier, nextBilling.Format("2006-01-02")),
		Metadata: recipientMetadata(req.BillingEmail),
	})

	return subscription, nil
}

func (s *Service) RecordFailedPayment(ctx context.Context, sellerID, providerPaymentID, billingEmail string) {
	s.log.Info("payment failed for seller",
		zap.String("seller_id", sellerID),
		zap.String("provider_payment_id", providerPaymentID),
	)
	s.publisher.Publish(ctx, events.Notification{
		Kind:     events.KindSubscriptionPaymentBad,
		SellerID: sellerID,
		Subject:  "Payment failed",
		Body:     "Your subscription payment could not be processed. Please update your payment method.",
		Metadata: recipientMetadata(billingEmail),
	})
}

// recipientMetadata routes the notification to the billing contact from
// the payment entity. Deliveries without one are counted and dropped by
// the consumer.
func recipientMetadata(email string) map[string]string {
	if email == "" {
		return nil
	}
	return map[string]string{"email": email}
}

func (s *Service) GetBySellerID(ctx context.Context, sellerID string) (*domain.Subscription, error) {
	id, err := s.parseID(sellerID)
	if err != nil {
		return nil, domain.ErrInvalidSeller
	}
	subscription, err := s.repo.FindBySellerID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if subscription == nil {
		return nil, domain.ErrSubscriptionNotFound
	}
	return subscription, nil
}

func (s *Service) PrepareUpgrade(ctx context.Context, req domain.UpgradeRequest) (*domain.UpgradeDescriptor, error) {
	_ = ctx
	if _, err := s.parseID(req.SellerID); err != nil {
		return nil, domain.ErrInvalidSeller
	}
	if !domain.IsValidTier(req.Tier) || req.Tier == domain.TierFree {
		return nil, domain.ErrInvalidTier
	}
	if !domain.IsValidInterval(req.Interval) {
		return nil, domain.ErrInvalidInterval
	}

	amount, ok := domain.AmountFor(req.Tier, req.Interval)
	if !ok {
		return nil, domain.ErrInvalidInterval
	}
	plan, _ := domain.PlanFor(req.Tier)

	return &domain.UpgradeDescriptor{
		ProviderOrderID: "order_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Amount:          amount,
		Currency:        plan.Currency,
		Tier:            req.Tier,
		Interval:        req.Interval,
	}, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", value)
	}
	return id, nil
}
