package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/vendaro/vendaro/internal/order/domain"
)

func (s *Server) CreateOrder(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req orderdomain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if actor.Role == orderdomain.RoleCustomer {
		req.CustomerID = actor.ID.String()
	}

	resp, err := s.orderSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetOrder(c *gin.Context) {
	resp, err := s.orderSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if actor, ok := actorFrom(c); ok && !canReadOrder(actor, resp) {
		AbortWithError(c, orderdomain.ErrForbidden)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListOrders(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	req := orderdomain.ListOrdersRequest{
		SellerID:   strings.TrimSpace(c.Query("seller_id")),
		CustomerID: strings.TrimSpace(c.Query("customer_id")),
		Status:     strings.TrimSpace(c.Query("status")),
	}

	// Non-admin callers only ever see their own orders.
	switch actor.Role {
	case orderdomain.RoleSeller:
		req.SellerID = actor.ID.String()
	case orderdomain.RoleCustomer:
		req.CustomerID = actor.ID.String()
	}

	resp, err := s.orderSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) TransitionOrder(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req struct {
		Status      string `json:"status"`
		Description string `json:"description"`
		TrackingID  string `json:"tracking_id"`
		Carrier     string `json:"carrier"`
		Reason      string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.orderSvc.Transition(c.Request.Context(), orderdomain.TransitionRequest{
		OrderID:     strings.TrimSpace(c.Param("id")),
		Status:      orderdomain.OrderStatus(strings.TrimSpace(req.Status)),
		Actor:       actor,
		Description: strings.TrimSpace(req.Description),
		TrackingID:  strings.TrimSpace(req.TrackingID),
		Carrier:     strings.TrimSpace(req.Carrier),
		Reason:      strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelOrder(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.orderSvc.Cancel(c.Request.Context(), orderdomain.CancelOrderRequest{
		OrderID: strings.TrimSpace(c.Param("id")),
		Actor:   actor,
		Reason:  strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RequestReturn(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req struct {
		Reason      string   `json:"reason"`
		Description string   `json:"description"`
		Evidence    []string `json:"evidence"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.orderSvc.RequestReturn(c.Request.Context(), orderdomain.RequestReturnRequest{
		OrderID:     strings.TrimSpace(c.Param("id")),
		Actor:       actor,
		Reason:      strings.TrimSpace(req.Reason),
		Description: strings.TrimSpace(req.Description),
		Evidence:    req.Evidence,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ProcessReturn(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req struct {
		Action       string     `json:"action"`
		PickupDate   *time.Time `json:"pickup_date"`
		RefundAmount int64      `json:"refund_amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.orderSvc.ProcessReturn(c.Request.Context(), orderdomain.ProcessReturnRequest{
		OrderID:      strings.TrimSpace(c.Param("id")),
		Actor:        actor,
		Action:       orderdomain.ReturnAction(strings.TrimSpace(req.Action)),
		PickupDate:   req.PickupDate,
		RefundAmount: req.RefundAmount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CompleteRefund(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.orderSvc.CompleteRefund(c.Request.Context(), strings.TrimSpace(c.Param("id")), actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func canReadOrder(actor orderdomain.Actor, order *orderdomain.Order) bool {
	switch actor.Role {
	case orderdomain.RoleAdmin:
		return true
	case orderdomain.RoleSeller:
		return order.SellerID == actor.ID
	case orderdomain.RoleCustomer:
		return order.CustomerID == actor.ID
	default:
		return false
	}
}
