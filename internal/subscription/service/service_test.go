package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendaro/vendaro/internal/analytics"
	"github.com/vendaro/vendaro/internal/clock"
	"github.com/vendaro/vendaro/internal/events"
	"github.com/vendaro/vendaro/internal/subscription/domain"
	"github.com/vendaro/vendaro/internal/subscription/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	svc   domain.Service
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Subscription{},
		&domain.HistoryEntry{},
		&analytics.TierStats{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fakeClock,
		Repo:      repository.Provide(),
		Publisher: events.NewNoopPublisher(zap.NewNop()),
		Analytics: analytics.NewRecorder(db, zap.NewNop()),
	})

	return &testEnv{svc: svc, db: db, node: node, clock: fakeClock}
}

func TestActivate_FirstPaymentCreatesSubscription(t *testing.T) {
	env := newTestEnv(t)
	sellerID := env.node.Generate()

	sub, err := env.svc.Activate(context.Background(), domain.ActivationRequest{
		SellerID:          sellerID.String(),
		Tier:              domain.TierStarter,
		Interval:          domain.IntervalMonthly,
		Amount:            99900,
		Currency:          "inr",
		ProviderPaymentID: "pay_abc123",
		OccurredAt:        env.clock.Now(),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TierStarter, sub.Tier)
	assert.Equal(t, domain.StatusActive, sub.Status)
	assert.Equal(t, sellerID, sub.SellerID)
	assert.Equal(t, int64(99900), sub.Billing.Amount)
	assert.Equal(t, "INR", sub.Billing.Currency)
	assert.Equal(t, "pay_abc123", sub.Billing.PaymentMethod)
	assert.Equal(t, 1, sub.MonthsSubscribed)

	// Jan 31 billed, next billing clamps to the end of February.
	require.NotNil(t, sub.Billing.NextBillingDate)
	assert.Equal(t, time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC), sub.Billing.NextBillingDate.UTC())

	// The feature bundle is frozen onto the row as JSON.
	var features domain.FeatureBundle
	require.NoError(t, json.Unmarshal(sub.Features, &features))
	assert.Equal(t, 100, features.MaxProducts)
	assert.True(t, features.Analytics)

	// History records the tier that was active before: free.
	var history []domain.HistoryEntry
	require.NoError(t, env.db.Where("subscription_id = ?", sub.ID).Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, domain.TierFree, history[0].Tier)
}

func TestActivate_UpgradeAppendsHistory(t *testing.T) {
	env := newTestEnv(t)
	sellerID := env.node.Generate()
	ctx := context.Background()

	_, err := env.svc.Activate(ctx, domain.ActivationRequest{
		SellerID: sellerID.String(),
		Tier:     domain.TierStarter,
		Interval: domain.IntervalMonthly,
		Amount:   99900,
		Currency: "INR",
	})
	require.NoError(t, err)

	env.clock.Advance(40 * 24 * time.Hour)
	sub, err := env.svc.Activate(ctx, domain.ActivationRequest{
		SellerID:   sellerID.String(),
		Tier:       domain.TierProfessional,
		Interval:   domain.IntervalYearly,
		Amount:     2399040,
		Currency:   "INR",
		OccurredAt: env.clock.Now(),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TierProfessional, sub.Tier)
	assert.Equal(t, 1+12, sub.MonthsSubscribed)

	var history []domain.HistoryEntry
	require.NoError(t, env.db.Where("subscription_id = ?", sub.ID).Order("id ASC").Find(&history).Error)
	require.Len(t, history, 2)
	assert.Equal(t, domain.TierFree, history[0].Tier)
	assert.Equal(t, domain.TierStarter, history[1].Tier)
	assert.Equal(t, int64(99900), history[1].Amount)
}

func TestActivate_UpdatesTierStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Activate(ctx, domain.ActivationRequest{
		SellerID: env.node.Generate().String(),
		Tier:     domain.TierStarter,
		Interval: domain.IntervalMonthly,
		Amount:   99900,
		Currency: "INR",
	})
	require.NoError(t, err)
	_, err = env.svc.Activate(ctx, domain.ActivationRequest{
		SellerID: env.node.Generate().String(),
		Tier:     domain.TierStarter,
		Interval: domain.IntervalQuarterly,
		Amount:   269730,
		Currency: "INR",
	})
	require.NoError(t, err)

	var stats analytics.TierStats
	require.NoError(t, env.db.Where("tier = ?", domain.TierStarter).First(&stats).Error)
	assert.Equal(t, int64(2), stats.ActiveSubscribers)
	assert.Equal(t, int64(2), stats.TotalSubscribers)
	// 99900 + 269730/3 normalized to monthly revenue.
	assert.Equal(t, int64(99900+89910), stats.MonthlyRevenue)
}

func TestActivate_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := env.node.Generate().String()

	cases := []struct {
		name string
		req  domain.ActivationRequest
		want error
	}{
		{"bad seller", domain.ActivationRequest{SellerID: "nope", Tier: domain.TierStarter, Interval: domain.IntervalMonthly, Amount: 1}, domain.ErrInvalidSeller},
		{"bad tier", domain.ActivationRequest{SellerID: seller, Tier: "platinum", Interval: domain.IntervalMonthly, Amount: 1}, domain.ErrInvalidTier},
		{"bad interval", domain.ActivationRequest{SellerID: seller, Tier: domain.TierStarter, Interval: "weekly", Amount: 1}, domain.ErrInvalidInterval},
		{"bad amount", domain.ActivationRequest{SellerID: seller, Tier: domain.TierStarter, Interval: domain.IntervalMonthly, Amount: 0}, domain.ErrInvalidAmount},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Activate(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestGetBySellerID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sellerID := env.node.Generate()

	_, err := env.svc.GetBySellerID(ctx, sellerID.String())
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)

	_, err = env.svc.Activate(ctx, domain.ActivationRequest{
		SellerID: sellerID.String(),
		Tier:     domain.TierStarter,
		Interval: domain.IntervalMonthly,
		Amount:   99900,
		Currency: "INR",
	})
	require.NoError(t, err)

	sub, err := env.svc.GetBySellerID(ctx, sellerID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.TierStarter, sub.Tier)
}

func TestPrepareUpgrade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := env.node.Generate().String()

	desc, err := env.svc.PrepareUpgrade(ctx, domain.UpgradeRequest{
		SellerID: seller,
		Tier:     domain.TierProfessional,
		Interval: domain.IntervalYearly,
	})
	require.NoError(t, err)

	// Yearly price is twelve months less the 20 percent discount.
	assert.Equal(t, int64(249900*12*80/100), desc.Amount)
	assert.Equal(t, "INR", desc.Currency)
	assert.Contains(t, desc.ProviderOrderID, "order_")

	// Upgrading to free is not a purchase.
	_, err = env.svc.PrepareUpgrade(ctx, domain.UpgradeRequest{
		SellerID: seller,
		Tier:     domain.TierFree,
		Interval: domain.IntervalMonthly,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTier)
}
