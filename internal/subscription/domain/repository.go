package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	FindBySellerID(ctx context.Context, db *gorm.DB, sellerID snowflake.ID) (*Subscription, error)
	FindBySellerIDForUpdate(ctx context.Context, db *gorm.DB, sellerID snowflake.ID) (*Subscription, error)
	Update(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	AppendHistory(ctx context.Context, db *gorm.DB, entry *HistoryEntry) error
}
