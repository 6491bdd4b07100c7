package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/vendaro/vendaro/internal/clock"
	"github.com/vendaro/vendaro/internal/events"
	"github.com/vendaro/vendaro/internal/observability/metrics"
	"github.com/vendaro/vendaro/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	publisher events.Publisher
	metrics   *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("order.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		publisher: p.Publisher,
		metrics:   p.Metrics,
	}
}

// successors is the legal transition graph. All transition knowledge
// lives here; no handler may flip order.status through another path.
var successors = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:    {domain.OrderStatusProcessing, domain.OrderStatusCancelled},
	domain.OrderStatusProcessing: {domain.OrderStatusConfirmed, domain.OrderStatusCancelled},
	domain.OrderStatusConfirmed:  {domain.OrderStatusShipped, domain.OrderStatusCancelled},
	domain.OrderStatusShipped:    {domain.OrderStatusDelivered},
	domain.OrderStatusDelivered:  {domain.OrderStatusReturned},
	domain.OrderStatusReturned:   {domain.OrderStatusRefunded},
}

func isKnownStatus(status domain.OrderStatus) bool {
	switch status {
	case domain.OrderStatusPending, domain.OrderStatusProcessing, domain.OrderStatusConfirmed,
		domain.OrderStatusShipped, domain.OrderStatusDelivered, domain.OrderStatusCancelled,
		domain.OrderStatusReturned, domain.OrderStatusRefunded:
		return true
	default:
		return false
	}
}

func isLegalSuccessor(current, target domain.OrderStatus) bool {
	for _, next := range successors[current] {
		if next == target {
			return true
		}
	}
	return false
}

func isTerminal(status domain.OrderStatus) bool {
	switch status {
	case domain.OrderStatusCancelled, domain.OrderStatusRefunded:
		return true
	default:
		return false
	}
}

func defaultDescription(status domain.OrderStatus) string {
	switch status {
	case domain.OrderStatusPending:
		return "Order placed"
	case domain.OrderStatusProcessing:
		return "Order is being processed"
	case domain.OrderStatusConfirmed:
		return "Order confirmed by seller"
	case domain.OrderStatusShipped:
		return "Order shipped"
	case domain.OrderStatusDelivered:
		return "Order delivered"
	case domain.OrderStatusCancelled:
		return "Order cancelled"
	case domain.OrderStatusReturned:
		return "Order returned"
	case domain.OrderStatusRefunded:
		return "Order refunded"
	default:
		return string(status)
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error) {
	sellerID, err := s.parseID(req.SellerID)
	if err != nil {
		return nil, domain.ErrInvalidOrder
	}
	customerID, err := s.parseID(req.CustomerID)
	if err != nil {
		return nil, domain.ErrInvalidOrder
	}
	if req.PaymentMethod != domain.PaymentMethodCOD && req.PaymentMethod != domain.PaymentMethodOnline {
		return nil, domain.ErrInvalidOrder
	}
	if len(req.Items) == 0 {
		return nil, domain.ErrInvalidItems
	}

	var subtotal int64
	for _, item := range req.Items {
		if item.Quantity <= 0 || item.UnitPrice < 0 || strings.TrimSpace(item.SKU) == "" {
			return nil, domain.ErrInvalidItems
		}
		subtotal += item.UnitPrice * int64(item.Quantity)
	}
	if req.Shipping < 0 || req.Tax < 0 || req.Discount < 0 {
		return nil, domain.ErrInvalidOrder
	}

	now := s.clock.Now()
	orderID := s.genID.Generate()

	order := &domain.Order{
		ID:            orderID,
		OrderNumber:   fmt.Sprintf("VD-%s", orderID.String()),
		SellerID:      sellerID,
		CustomerID:    customerID,
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		Status:        domain.OrderStatusPending,
		Version:       1,
		Pricing: domain.Pricing{
			Subtotal: subtotal,
			Shipping: req.Shipping,
			Tax:      req.Tax,
			Discount: req.Discount,
			Total:    subtotal + req.Shipping + req.Tax - req.Discount,
		},
		Payment: domain.PaymentInfo{
			Method:     req.PaymentMethod,
			Status:     domain.PaymentStatusPending,
			CouponCode: strings.TrimSpace(req.CouponCode),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := s.parseID(item.ProductID)
		if err != nil {
			return nil, domain.ErrInvalidItems
		}
		items = append(items, domain.OrderItem{
			ID:        s.genID.Generate(),
			OrderID:   orderID,
			ProductID: productID,
			SKU:       strings.TrimSpace(item.SKU),
			Name:      strings.TrimSpace(item.Name),
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Status:    domain.OrderStatusPending,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, order, items); err != nil {
			return err
		}
		return s.repo.AppendTimeline(ctx, tx, &domain.TimelineEntry{
			ID:          s.genID.Generate(),
			OrderID:     orderID,
			Status:      domain.OrderStatusPending,
			Description: defaultDescription(domain.OrderStatusPending),
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, s.db, orderID)
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	orderID, err := s.parseID(id)
	if err != nil {
		return nil, domain.ErrOrderNotFound
	}
	order, err := s.repo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *Service) List(ctx context.Context, req domain.ListOrdersRequest) ([]domain.Order, error) {
	filter := domain.ListOrdersFilter{}
	if req.SellerID != "" {
		id, err := s.parseID(req.SellerID)
		if err != nil {
			return nil, domain.ErrInvalidOrder
		}
		filter.SellerID = id
	}
	if req.CustomerID != "" {
		id, err := s.parseID(req.CustomerID)
		if err != nil {
			return nil, domain.ErrInvalidOrder
		}
		filter.CustomerID = id
	}
	if req.Status != "" {
		status := domain.OrderStatus(strings.TrimSpace(req.Status))
		if !isKnownStatus(status) {
			return nil, domain.ErrInvalidStatus
		}
		filter.Status = status
	}
	return s.repo.List(ctx, s.db, filter)
}

func (s *Service) Transition(ctx context.Context, req domain.TransitionRequest) (*domain.Order, error) {
	orderID, err := s.parseID(req.OrderID)
	if err != nil {
		return nil, domain.ErrOrderNotFound
	}
	if !isKnownStatus(req.Status) {
		return nil, domain.ErrInvalidStatus
	}

	var updated *domain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repo.FindByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrOrderNotFound
		}
		if err := s.applyTransition(ctx, tx, order, req); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordOrderTransition(string(req.Status))
	s.notifyTransition(ctx, updated)

	return s.repo.FindByID(ctx, s.db, orderID)
}

// applyTransition validates and applies a transition inside the
// caller's transaction: status write, shipping/cancellation bookkeeping
// and the timeline append land atomically or not at all.
func (s *Service) applyTransition(ctx context.Context, tx *gorm.DB, order *domain.Order, req domain.TransitionRequest) error {
	if err := s.authorizeTransition(order, req); err != nil {
		return err
	}

	previous := order.Status
	if req.Actor.Role != domain.RoleAdmin {
		if !isLegalSuccessor(previous, req.Status) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, previous, req.Status)
		}
	}

	now := s.clock.Now()
	switch req.Status {
	case domain.OrderStatusShipped:
		if strings.TrimSpace(req.TrackingID) == "" {
			return domain.ErrTrackingIDRequired
		}
		order.Shipping.TrackingID = strings.TrimSpace(req.TrackingID)
		order.Shipping.Carrier = strings.TrimSpace(req.Carrier)
		order.Shipping.ShippedAt = &now
	case domain.OrderStatusDelivered:
		order.Shipping.DeliveredAt = &now
	case domain.OrderStatusCancelled:
		order.Cancellation = domain.Cancellation{
			CancelledBy: req.Actor.Role,
			Reason:      strings.TrimSpace(req.Reason),
			CancelledAt: &now,
		}
	}

	expectedVersion := order.Version
	order.Status = req.Status

	ok, err := s.repo.Update(ctx, tx, order, expectedVersion)
	if err != nil {
		return err
	}
	if !ok {
		// A concurrent writer advanced the order after our read; the
		// caller must re-validate against the latest state.
		return fmt.Errorf("%w: %s -> %s", domain.ErrTransitionConflict, previous, req.Status)
	}

	if isTerminal(req.Status) || req.Status == domain.OrderStatusReturned {
		if err := s.repo.SetItemStatuses(ctx, tx, order.ID, req.Status); err != nil {
			return err
		}
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = defaultDescription(req.Status)
	}
	return s.repo.AppendTimeline(ctx, tx, &domain.TimelineEntry{
		ID:          s.genID.Generate(),
		OrderID:     order.ID,
		Status:      req.Status,
		Description: description,
		CreatedAt:   now,
	})
}

func (s *Service) authorizeTransition(order *domain.Order, req domain.TransitionRequest) error {
	switch req.Actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleSeller:
		if order.SellerID != req.Actor.ID {
			return domain.ErrForbidden
		}
		return nil
	case domain.RoleCustomer:
		if order.CustomerID != req.Actor.ID {
			return domain.ErrForbidden
		}
		// Customers may only cancel their own order.
		if req.Status != domain.OrderStatusCancelled {
			return domain.ErrForbidden
		}
		return nil
	default:
		return domain.ErrForbidden
	}
}

func (s *Service) notifyTransition(ctx context.Context, order *domain.Order) {
	if order == nil {
		return
	}
	s.publisher.Publish(ctx, events.Notification{
		Kind:       events.KindOrderStatusChanged,
		OrderID:    order.ID.String(),
		SellerID:   order.SellerID.String(),
		CustomerID: order.CustomerID.String(),
		Subject:    fmt.Sprintf("Order %s %s", order.OrderNumber, order.Status),
		Body:       fmt.Sprintf("Your order %s is now %s.", order.OrderNumber, order.Status),
		Metadata:   recipientMetadata(order),
	})
}

// recipientMetadata routes a notification to the checkout email. Orders
// imported without one produce a notification the consumer drops.
func recipientMetadata(order *domain.Order) map[string]string {
	if order.CustomerEmail == "" {
		return nil
	}
	return map[string]string{"email": order.CustomerEmail}
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", value)
	}
	return id, nil
}
