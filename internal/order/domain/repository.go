package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository methods take the *gorm.DB so services can run them inside
// their own transactions.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order, items []OrderItem) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	// FindByIDForUpdate locks the row where the backend supports it.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	List(ctx context.Context, db *gorm.DB, filter ListOrdersFilter) ([]Order, error)

	// Update persists the order's mutable fields guarded by the version
	// the caller read. Returns false when the guard misses, meaning a
	// concurrent writer landed first.
	Update(ctx context.Context, db *gorm.DB, order *Order, expectedVersion int64) (bool, error)

	AppendTimeline(ctx context.Context, db *gorm.DB, entry *TimelineEntry) error
	SetItemStatuses(ctx context.Context, db *gorm.DB, orderID snowflake.ID, status OrderStatus) error
}

type ListOrdersFilter struct {
	SellerID   snowflake.ID
	CustomerID snowflake.ID
	Status     OrderStatus
}
