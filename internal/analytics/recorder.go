// Package analytics maintains per-tier aggregate counters. Updates are
// best-effort: callers record after their primary transaction commits
// and swallow failures.
package analytics

import (
	"context"
	"time"

	subscriptiondomain "github.com/vendaro/vendaro/internal/subscription/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TierStats is the aggregate row per subscription tier.
type TierStats struct {
	Tier              subscriptiondomain.Tier `gorm:"primaryKey;type:text"`
	ActiveSubscribers int64                   `gorm:"not null;default:0"`
	TotalSubscribers  int64                   `gorm:"not null;default:0"`
	MonthlyRevenue    int64                   `gorm:"not null;default:0"`
	UpdatedAt         time.Time               `gorm:"not null"`
}

func (TierStats) TableName() string { return "subscription_tier_stats" }

type Recorder interface {
	// RecordActivation moves a subscriber from prevTier to newTier and
	// adds the normalized monthly revenue to the new tier's aggregate.
	RecordActivation(ctx context.Context, prevTier, newTier subscriptiondomain.Tier, monthlyRevenue int64) error
}

type recorder struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewRecorder(db *gorm.DB, log *zap.Logger) Recorder {
	return &recorder{db: db, log: log.Named("analytics")}
}

func (r *recorder) RecordActivation(ctx context.Context, prevTier, newTier subscriptiondomain.Tier, monthlyRevenue int64) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if prevTier != "" && prevTier != newTier {
			if err := tx.Model(&TierStats{}).
				Where("tier = ? AND active_subscribers > 0", prevTier).
				Updates(map[string]any{
					"active_subscribers": gorm.Expr("active_subscribers - 1"),
					"updated_at":         now,
				}).Error; err != nil {
				return err
			}
		}

		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tier"}},
			DoUpdates: clause.Assignments(map[string]any{
				"active_subscribers": gorm.Expr("subscription_tier_stats.active_subscribers + 1"),
				"total_subscribers":  gorm.Expr("subscription_tier_stats.total_subscribers + 1"),
				"monthly_revenue":    gorm.Expr("subscription_tier_stats.monthly_revenue + ?", monthlyRevenue),
				"updated_at":         now,
			}),
		}).Create(&TierStats{
			Tier:              newTier,
			ActiveSubscribers: 1,
			TotalSubscribers:  1,
			MonthlyRevenue:    monthlyRevenue,
			UpdatedAt:         now,
		}).Error
	})
}
