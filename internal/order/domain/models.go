// Package domain contains persistence models for marketplace orders.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// OrderStatus is the single authoritative lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusReturned   OrderStatus = "returned"
	OrderStatusRefunded   OrderStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodOnline PaymentMethod = "online"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// ReturnStatus tracks the return request sub-state. Empty means no
// return has been requested.
type ReturnStatus string

const (
	ReturnStatusNone      ReturnStatus = ""
	ReturnStatusRequested ReturnStatus = "requested"
	ReturnStatusApproved  ReturnStatus = "approved"
	ReturnStatusRejected  ReturnStatus = "rejected"
	ReturnStatusRefunded  ReturnStatus = "refunded"
)

// ActorRole identifies who is acting on an order. Admin transitions are
// unconstrained by the status graph but still recorded in the timeline.
type ActorRole string

const (
	RoleAdmin    ActorRole = "admin"
	RoleSeller   ActorRole = "seller"
	RoleCustomer ActorRole = "customer"
)

// Actor is the authenticated principal performing an operation.
type Actor struct {
	ID   snowflake.ID
	Role ActorRole
}

// Pricing is computed once at checkout and frozen thereafter. Amounts
// are in minor currency units.
type Pricing struct {
	Subtotal int64 `json:"subtotal" gorm:"not null"`
	Shipping int64 `json:"shipping" gorm:"not null"`
	Tax      int64 `json:"tax" gorm:"not null"`
	Discount int64 `json:"discount" gorm:"not null"`
	Total    int64 `json:"total" gorm:"not null"`
}

type PaymentInfo struct {
	Method        PaymentMethod `json:"method" gorm:"type:text;not null"`
	Status        PaymentStatus `json:"status" gorm:"type:text;not null"`
	TransactionID string        `json:"transaction_id" gorm:"type:text"`
	CouponCode    string        `json:"coupon_code" gorm:"type:text"`
}

// ShippingInfo is populated once the order reaches shipped.
type ShippingInfo struct {
	TrackingID        string     `json:"tracking_id" gorm:"type:text"`
	Carrier           string     `json:"carrier" gorm:"type:text"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	ShippedAt         *time.Time `json:"shipped_at"`
	DeliveredAt       *time.Time `json:"delivered_at"`
}

// ReturnRequest is the post-delivery return sub-state machine.
type ReturnRequest struct {
	Status       ReturnStatus   `json:"status" gorm:"type:text"`
	Reason       string         `json:"reason" gorm:"type:text"`
	Description  string         `json:"description" gorm:"type:text"`
	Evidence     datatypes.JSON `json:"evidence"`
	PickupDate   *time.Time     `json:"pickup_date"`
	RefundAmount *int64         `json:"refund_amount"`
	RequestedAt  *time.Time     `json:"requested_at"`
}

type Cancellation struct {
	CancelledBy ActorRole  `json:"cancelled_by" gorm:"type:text"`
	Reason      string     `json:"reason" gorm:"type:text"`
	CancelledAt *time.Time `json:"cancelled_at"`
}

// Order is the aggregate root. status and the timeline are written only
// by the order service, always together in one transaction. Version
// guards concurrent read-modify-write cycles.
type Order struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	OrderNumber string       `json:"order_number" gorm:"type:text;not null;uniqueIndex"`
	SellerID    snowflake.ID `json:"seller_id" gorm:"not null;index"`
	CustomerID  snowflake.ID `json:"customer_id" gorm:"not null;index"`
	// CustomerEmail is captured at checkout and is the recipient for
	// every lifecycle notification on this order.
	CustomerEmail string      `json:"customer_email" gorm:"type:text"`
	Status        OrderStatus `json:"status" gorm:"type:text;not null;index"`
	Version       int64       `json:"-" gorm:"not null;default:1"`

	Pricing       Pricing       `json:"pricing" gorm:"embedded;embeddedPrefix:pricing_"`
	Payment       PaymentInfo   `json:"payment" gorm:"embedded;embeddedPrefix:payment_"`
	Shipping      ShippingInfo  `json:"shipping" gorm:"embedded;embeddedPrefix:shipping_"`
	ReturnRequest ReturnRequest `json:"return_request" gorm:"embedded;embeddedPrefix:return_"`
	Cancellation  Cancellation  `json:"cancellation" gorm:"embedded;embeddedPrefix:cancel_"`

	Items    []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	Timeline []TimelineEntry `json:"timeline" gorm:"foreignKey:OrderID"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (Order) TableName() string { return "orders" }

// OrderItem lines are immutable after checkout except for Status.
type OrderItem struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	OrderID   snowflake.ID `json:"order_id" gorm:"not null;index"`
	ProductID snowflake.ID `json:"product_id" gorm:"not null"`
	SKU       string       `json:"sku" gorm:"type:text;not null"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	UnitPrice int64        `json:"unit_price" gorm:"not null"`
	Quantity  int          `json:"quantity" gorm:"not null"`
	Status    OrderStatus  `json:"status" gorm:"type:text;not null"`
}

func (OrderItem) TableName() string { return "order_items" }

// TimelineEntry is append-only; every status transition appends exactly
// one entry in the same transaction as the status write.
type TimelineEntry struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	OrderID     snowflake.ID `json:"order_id" gorm:"not null;index"`
	Status      OrderStatus  `json:"status" gorm:"type:text;not null"`
	Description string       `json:"description" gorm:"type:text;not null"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null"`
}

func (TimelineEntry) TableName() string { return "order_timeline" }
