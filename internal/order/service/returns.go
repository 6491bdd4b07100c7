package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vendaro/vendaro/internal/events"
	"github.com/vendaro/vendaro/internal/order/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const minReturnDescription = 10

func (s *Service) RequestReturn(ctx context.Context, req domain.RequestReturnRequest) (*domain.Order, error) {
	orderID, err := s.parseID(req.OrderID)
	if err != nil {
		return nil, domain.ErrOrderNotFound
	}
	if len(strings.TrimSpace(req.Description)) < minReturnDescription {
		return nil, domain.ErrDescriptionTooShort
	}
	evidence := make([]string, 0, len(req.Evidence))
	for _, item := range req.Evidence {
		if strings.TrimSpace(item) != "" {
			evidence = append(evidence, strings.TrimSpace(item))
		}
	}
	if len(evidence) == 0 {
		return nil, domain.ErrEvidenceRequired
	}
	evidenceJSON, err := json.Marshal(evidence)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repo.FindByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrOrderNotFound
		}
		// Only the buyer (or an admin on their behalf) may open a return;
		// sellers act on returns through the decision step instead.
		switch req.Actor.Role {
		case domain.RoleAdmin:
		case domain.RoleCustomer:
			if order.CustomerID != req.Actor.ID {
				return domain.ErrForbidden
			}
		default:
			return domain.ErrForbidden
		}
		if order.Status != domain.OrderStatusDelivered {
			return fmt.Errorf("%w: return requires a delivered order, got %s", domain.ErrInvalidState, order.Status)
		}
		if order.ReturnRequest.Status != domain.ReturnStatusNone {
			return fmt.Errorf("%w: return already %s", domain.ErrInvalidState, order.ReturnRequest.Status)
		}

		now := s.clock.Now()
		order.ReturnRequest = domain.ReturnRequest{
			Status:      domain.ReturnStatusRequested,
			Reason:      strings.TrimSpace(req.Reason),
			Description: strings.TrimSpace(req.Description),
			Evidence:    datatypes.JSON(evidenceJSON),
			RequestedAt: &now,
		}

		ok, err := s.repo.Update(ctx, tx, order, order.Version)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrTransitionConflict
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := s.repo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ctx, events.Notification{
		Kind:       events.KindOrderReturnRequested,
		OrderID:    order.ID.String(),
		SellerID:   order.SellerID.String(),
		CustomerID: order.CustomerID.String(),
		Subject:    fmt.Sprintf("Return requested for order %s", order.OrderNumber),
		Body:       fmt.Sprintf("A return was requested for order %s: %s", order.OrderNumber, order.ReturnRequest.Reason),
		Metadata:   recipientMetadata(order),
	})
	return order, nil
}

func (s *Service) ProcessReturn(ctx context.Context, req domain.ProcessReturnRequest) (*domain.Order, error) {
	orderID, err := s.parseID(req.OrderID)
	if err != nil {
		return nil, domain.ErrOrderNotFound
	}
	if req.Action != domain.ReturnActionApproved && req.Action != domain.ReturnActionRejected {
		return nil, domain.ErrInvalidReturnAction
	}
	if req.Actor.Role == domain.RoleCustomer {
		return nil, domain.ErrForbidden
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repo.FindByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrOrderNotFound
		}
		if req.Actor.Role == domain.RoleSeller && order.SellerID != req.Actor.ID {
			return domain.ErrForbidden
		}
		if order.ReturnRequest.Status != domain.ReturnStatusRequested {
			return fmt.Errorf("%w: return is %q, want requested", domain.ErrInvalidState, order.ReturnRequest.Status)
		}

		if req.Action == domain.ReturnActionRejected {
			order.ReturnRequest.Status = domain.ReturnStatusRejected
			ok, err := s.repo.Update(ctx, tx, order, order.Version)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrTransitionConflict
			}
			return nil
		}

		refund := req.RefundAmount
		if refund <= 0 {
			refund = order.Pricing.Total
		}
		// The admin-provided amount is capped at what the customer paid.
		if refund > order.Pricing.Total {
			return domain.ErrRefundExceedsPaid
		}

		order.ReturnRequest.Status = domain.ReturnStatusApproved
		order.ReturnRequest.PickupDate = req.PickupDate
		order.ReturnRequest.RefundAmount = &refund

		return s.applyTransition(ctx, tx, order, domain.TransitionRequest{
			OrderID:     req.OrderID,
			Status:      domain.OrderStatusReturned,
			Actor:       req.Actor,
			Description: "Return approved, pickup scheduled",
		})
	})
	if err != nil {
		return nil, err
	}

	if req.Action == domain.ReturnActionApproved {
		s.metrics.RecordOrderTransition(string(domain.OrderStatusReturned))
	}
	order, err := s.repo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ctx, events.Notification{
		Kind:       events.KindOrderReturnProcessed,
		OrderID:    order.ID.String(),
		SellerID:   order.SellerID.String(),
		CustomerID: order.CustomerID.String(),
		Subject:    fmt.Sprintf("Return %s for order %s", req.Action, order.OrderNumber),
		Body:       fmt.Sprintf("Your return request for order %s was %s.", order.OrderNumber, req.Action),
		Metadata:   recipientMetadata(order),
	})
	return order, nil
}

func (s *Service) CompleteRefund(ctx context.Context, orderID string, actor domain.Actor) (*domain.Order, error) {
	id, err := s.parseID(orderID)
	if err != nil {
		return nil, domain.ErrOrderNotFound
	}
	if actor.Role == domain.RoleCustomer {
		return nil, domain.ErrForbidden
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrOrderNotFound
		}
		if actor.Role == domain.RoleSeller && order.SellerID != actor.ID {
			return domain.ErrForbidden
		}
		if order.ReturnRequest.Status != domain.ReturnStatusApproved {
			return fmt.Errorf("%w: return is %q, want approved", domain.ErrInvalidState, order.ReturnRequest.Status)
		}

		order.ReturnRequest.Status = domain.ReturnStatusRefunded
		if order.Payment.Status == domain.PaymentStatusPaid {
			order.Payment.Status = domain.PaymentStatusRefunded
		}

		return s.applyTransition(ctx, tx, order, domain.TransitionRequest{
			OrderID:     orderID,
			Status:      domain.OrderStatusRefunded,
			Actor:       actor,
			Description: "Refund issued",
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordOrderTransition(string(domain.OrderStatusRefunded))
	order, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	s.notifyTransition(ctx, order)
	return order, nil
}

func (s *Service) Cancel(ctx context.Context, req domain.CancelOrderRequest) (*domain.Order, error) {
	id, err := s.parseID(req.OrderID)
	if err != nil {
		return nil, domain.ErrOrderNotFound
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrOrderNotFound
		}

		// A paid order being cancelled is owed its money back; the flip
		// rides the same atomic update as the status change.
		if order.Payment.Status == domain.PaymentStatusPaid {
			order.Payment.Status = domain.PaymentStatusRefunded
		}

		return s.applyTransition(ctx, tx, order, domain.TransitionRequest{
			OrderID: req.OrderID,
			Status:  domain.OrderStatusCancelled,
			Actor:   req.Actor,
			Reason:  req.Reason,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordOrderTransition(string(domain.OrderStatusCancelled))
	order, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	s.notifyTransition(ctx, order)
	return order, nil
}
