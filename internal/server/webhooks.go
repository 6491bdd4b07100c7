package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/vendaro/vendaro/internal/payment/domain"
	"github.com/vendaro/vendaro/internal/payment/razorpay"
	"go.uber.org/zap"
)

// HandlePaymentWebhook ingests one provider delivery. Once the
// signature checks out the provider always gets a 200 ack, even when
// processing fails: the provider's retry loop is not our error channel,
// redelivery of a claimed-but-unprocessed event retries the dispatch.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "unreadable body"})
		return
	}

	err = s.paymentSvc.Ingest(c.Request.Context(), payload, c.GetHeader(razorpay.SignatureHeader))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "received": true})
	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid signature"})
	case errors.Is(err, paymentdomain.ErrEventAlreadyProcessed),
		errors.Is(err, paymentdomain.ErrEventIgnored):
		c.JSON(http.StatusOK, gin.H{"success": true, "received": true})
	default:
		s.log.Error("webhook processing failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"success": true, "received": true})
	}
}
