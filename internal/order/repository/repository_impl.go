package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/vendaro/vendaro/internal/order/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order, items []domain.OrderItem) error {
	if err := db.WithContext(ctx).Omit("Items", "Timeline").Create(order).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	return r.find(ctx, db, id, false)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	return r.find(ctx, db, id, true)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, id snowflake.ID, lock bool) (*domain.Order, error) {
	tx := db.WithContext(ctx)
	// sqlite has no row locks; the version guard in Update covers it.
	if lock && db.Dialector.Name() != "sqlite" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var order domain.Order
	err := tx.
		Preload("Items").
		Preload("Timeline", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListOrdersFilter) ([]domain.Order, error) {
	tx := db.WithContext(ctx).Model(&domain.Order{})
	if filter.SellerID != 0 {
		tx = tx.Where("seller_id = ?", filter.SellerID)
	}
	if filter.CustomerID != 0 {
		tx = tx.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Status != "" {
		tx = tx.Where("status = ?", filter.Status)
	}

	var orders []domain.Order
	if err := tx.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, order *domain.Order, expectedVersion int64) (bool, error) {
	order.UpdatedAt = time.Now().UTC()
	order.Version = expectedVersion + 1

	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND version = ?", order.ID, expectedVersion).
		Select("*").
		Omit("id", "created_at", "Items", "Timeline").
		Updates(order)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) AppendTimeline(ctx context.Context, db *gorm.DB, entry *domain.TimelineEntry) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) SetItemStatuses(ctx context.Context, db *gorm.DB, orderID snowflake.ID, status domain.OrderStatus) error {
	return db.WithContext(ctx).
		Model(&domain.OrderItem{}).
		Where("order_id = ?", orderID).
		Update("status", status).Error
}
