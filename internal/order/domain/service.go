package domain

import (
	"context"
	"errors"
	"time"
)

type CreateOrderItem struct {
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

type CreateOrderRequest struct {
	SellerID      string            `json:"seller_id"`
	CustomerID    string            `json:"customer_id"`
	CustomerEmail string            `json:"customer_email"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	CouponCode    string            `json:"coupon_code,omitempty"`
	Shipping      int64             `json:"shipping"`
	Tax           int64             `json:"tax"`
	Discount      int64             `json:"discount"`
	Items         []CreateOrderItem `json:"items"`
}

// TransitionRequest asks the state machine to move an order to Status.
type TransitionRequest struct {
	OrderID     string
	Status      OrderStatus
	Actor       Actor
	Description string
	TrackingID  string
	Carrier     string
	Reason      string
}

type RequestReturnRequest struct {
	OrderID     string
	Actor       Actor
	Reason      string
	Description string
	Evidence    []string
}

type ReturnAction string

const (
	ReturnActionApproved ReturnAction = "approved"
	ReturnActionRejected ReturnAction = "rejected"
)

type ProcessReturnRequest struct {
	OrderID      string
	Actor        Actor
	Action       ReturnAction
	PickupDate   *time.Time
	RefundAmount int64
}

type CancelOrderRequest struct {
	OrderID string
	Actor   Actor
	Reason  string
}

type ListOrdersRequest struct {
	SellerID   string
	CustomerID string
	Status     string
}

// Service is the single writer of order.status and order.timeline.
type Service interface {
	Create(ctx context.Context, req CreateOrderRequest) (*Order, error)
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, req ListOrdersRequest) ([]Order, error)

	// Transition validates and applies a status transition, appending
	// exactly one timeline entry atomically with the status write.
	Transition(ctx context.Context, req TransitionRequest) (*Order, error)

	RequestReturn(ctx context.Context, req RequestReturnRequest) (*Order, error)
	ProcessReturn(ctx context.Context, req ProcessReturnRequest) (*Order, error)
	// CompleteRefund finalizes an approved return: return request and
	// order both move to refunded in one transaction.
	CompleteRefund(ctx context.Context, orderID string, actor Actor) (*Order, error)
	Cancel(ctx context.Context, req CancelOrderRequest) (*Order, error)
}

var (
	ErrOrderNotFound       = errors.New("order_not_found")
	ErrInvalidOrder        = errors.New("invalid_order")
	ErrInvalidItems        = errors.New("invalid_items")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidTransition   = errors.New("invalid_transition")
	ErrTransitionConflict  = errors.New("transition_conflict")
	ErrForbidden           = errors.New("actor_not_allowed")
	ErrTrackingIDRequired  = errors.New("tracking_id_required")
	ErrInvalidState        = errors.New("invalid_state")
	ErrDescriptionTooShort = errors.New("description_too_short")
	ErrEvidenceRequired    = errors.New("evidence_required")
	ErrRefundExceedsPaid   = errors.New("refund_exceeds_paid_total")
	ErrInvalidReturnAction = errors.New("invalid_return_action")
)
