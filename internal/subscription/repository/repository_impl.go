package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/vendaro/vendaro/internal/subscription/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	return db.WithContext(ctx).Omit("History").Create(subscription).Error
}

func (r *repo) FindBySellerID(ctx context.Context, db *gorm.DB, sellerID snowflake.ID) (*domain.Subscription, error) {
	return r.find(ctx, db, sellerID, false)
}

func (r *repo) FindBySellerIDForUpdate(ctx context.Context, db *gorm.DB, sellerID snowflake.ID) (*domain.Subscription, error) {
	return r.find(ctx, db, sellerID, true)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, sellerID snowflake.ID, lock bool) (*domain.Subscription, error) {
	tx := db.WithContext(ctx)
	if lock && db.Dialector.Name() != "sqlite" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var subscription domain.Subscription
	err := tx.
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("end_date ASC, id ASC") }).
		Where("seller_id = ?", sellerID).
		First(&subscription).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	subscription.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("id = ?", subscription.ID).
		Select("*").
		Omit("id", "created_at", "History").
		Updates(subscription).Error
}

func (r *repo) AppendHistory(ctx context.Context, db *gorm.DB, entry *domain.HistoryEntry) error {
	return db.WithContext(ctx).Create(entry).Error
}
