package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/vendaro/vendaro/internal/order/domain"
	subscriptiondomain "github.com/vendaro/vendaro/internal/subscription/domain"
)

func (s *Server) GetSubscription(c *gin.Context) {
	sellerID, err := s.resolveSellerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.subscriptionSvc.GetBySellerID(c.Request.Context(), sellerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// PrepareUpgrade returns the provider order descriptor the client
// completes payment against. The tier change itself only lands when
// the provider's webhook confirms the charge.
func (s *Server) PrepareUpgrade(c *gin.Context) {
	sellerID, err := s.resolveSellerID(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req struct {
		Tier     string `json:"tier"`
		Interval string `json:"interval"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.subscriptionSvc.PrepareUpgrade(c.Request.Context(), subscriptiondomain.UpgradeRequest{
		SellerID: sellerID,
		Tier:     subscriptiondomain.Tier(strings.TrimSpace(req.Tier)),
		Interval: subscriptiondomain.BillingInterval(strings.TrimSpace(req.Interval)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// resolveSellerID is the acting seller's own id, or the seller_id query
// parameter when an admin asks on a seller's behalf.
func (s *Server) resolveSellerID(c *gin.Context) (string, error) {
	actor, ok := actorFrom(c)
	if !ok {
		return "", ErrUnauthorized
	}
	if actor.Role == orderdomain.RoleAdmin {
		if id := strings.TrimSpace(c.Query("seller_id")); id != "" {
			return id, nil
		}
	}
	return actor.ID.String(), nil
}
