package server

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendaro/vendaro/internal/analytics"
	"github.com/vendaro/vendaro/internal/auth"
	"github.com/vendaro/vendaro/internal/clock"
	"github.com/vendaro/vendaro/internal/config"
	"github.com/vendaro/vendaro/internal/events"
	orderdomain "github.com/vendaro/vendaro/internal/order/domain"
	orderrepo "github.com/vendaro/vendaro/internal/order/repository"
	orderservice "github.com/vendaro/vendaro/internal/order/service"
	paymentdomain "github.com/vendaro/vendaro/internal/payment/domain"
	paymentrepo "github.com/vendaro/vendaro/internal/payment/repository"
	paymentservice "github.com/vendaro/vendaro/internal/payment/service"
	subscriptiondomain "github.com/vendaro/vendaro/internal/subscription/domain"
	subscriptionrepo "github.com/vendaro/vendaro/internal/subscription/repository"
	subscriptionservice "github.com/vendaro/vendaro/internal/subscription/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testJWTSecret     = "jwt_test_secret"
	testWebhookSecret = "whsec_test"
)

type serverEnv struct {
	server *Server
	engine *gin.Engine
	db     *gorm.DB
	node   *snowflake.Node
}

func newServerEnv(t *testing.T) *serverEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&orderdomain.Order{},
		&orderdomain.OrderItem{},
		&orderdomain.TimelineEntry{},
		&subscriptiondomain.Subscription{},
		&subscriptiondomain.HistoryEntry{},
		&analytics.TierStats{},
		&paymentdomain.EventRecord{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	fakeClock := clock.NewFakeClock(time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC))
	publisher := events.NewNoopPublisher(log)

	cfg := config.Config{
		Environment:   "test",
		AuthJWTSecret: testJWTSecret,
		WebhookSecret: testWebhookSecret,
	}

	orderSvc := orderservice.NewService(orderservice.Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock,
		Repo: orderrepo.Provide(), Publisher: publisher,
	})
	subscriptionSvc := subscriptionservice.NewService(subscriptionservice.Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock,
		Repo: subscriptionrepo.Provide(), Publisher: publisher,
		Analytics: analytics.NewRecorder(db, log),
	})
	paymentSvc := paymentservice.NewService(paymentservice.Params{
		Config: cfg, DB: db, Log: log, GenID: node, Clock: fakeClock,
		Repo: paymentrepo.Provide(), Subscriptions: subscriptionSvc,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	srv := NewServer(ServerParams{
		Gin: engine, Cfg: cfg, Log: log, DB: db, GenID: node,
		OrderSvc: orderSvc, SubscriptionSvc: subscriptionSvc, PaymentSvc: paymentSvc,
	})
	registerRoutes(srv)

	return &serverEnv{server: srv, engine: engine, db: db, node: node}
}

func (e *serverEnv) token(t *testing.T, id snowflake.ID, role orderdomain.ActorRole) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func (e *serverEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestOrdersAPI_RequiresAuth(t *testing.T) {
	env := newServerEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/orders", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrdersAPI_CreateAndTransition(t *testing.T) {
	env := newServerEnv(t)
	sellerID := env.node.Generate()
	customerID := env.node.Generate()
	sellerToken := env.token(t, sellerID, orderdomain.RoleSeller)
	customerToken := env.token(t, customerID, orderdomain.RoleCustomer)

	rec := env.do(t, http.MethodPost, "/api/v1/orders", customerToken, gin.H{
		"seller_id":      sellerID.String(),
		"customer_id":    customerID.String(),
		"payment_method": "online",
		"items": []gin.H{
			{"product_id": env.node.Generate().String(), "sku": "SKU-1", "name": "Bottle", "unit_price": 29900, "quantity": 1},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data orderdomain.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	orderID := created.Data.ID.String()
	assert.Equal(t, orderdomain.OrderStatusPending, created.Data.Status)

	rec = env.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/transition", sellerToken, gin.H{
		"status": "processing",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// An illegal jump maps to a conflict.
	rec = env.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/transition", sellerToken, gin.H{
		"status": "delivered",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// A customer cannot run fulfillment transitions.
	rec = env.do(t, http.MethodPost, "/api/v1/orders/"+orderID+"/transition", customerToken, gin.H{
		"status": "confirmed",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOrdersAPI_ReturnDecisionRequiresSellerOrAdmin(t *testing.T) {
	env := newServerEnv(t)
	customerToken := env.token(t, env.node.Generate(), orderdomain.RoleCustomer)

	rec := env.do(t, http.MethodPost, "/api/v1/orders/1/return/decision", customerToken, gin.H{
		"action": "approved",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOrdersAPI_RefundCompletionRoles(t *testing.T) {
	env := newServerEnv(t)

	customerToken := env.token(t, env.node.Generate(), orderdomain.RoleCustomer)
	rec := env.do(t, http.MethodPost, "/api/v1/orders/1/return/refund", customerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Sellers pass the role gate; the handler then fails on the missing
	// order rather than on authorization.
	sellerToken := env.token(t, env.node.Generate(), orderdomain.RoleSeller)
	rec = env.do(t, http.MethodPost, "/api/v1/orders/1/return/refund", sellerToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrdersAPI_GetScoping(t *testing.T) {
	env := newServerEnv(t)
	sellerID := env.node.Generate()
	customerID := env.node.Generate()
	customerToken := env.token(t, customerID, orderdomain.RoleCustomer)

	rec := env.do(t, http.MethodPost, "/api/v1/orders", customerToken, gin.H{
		"seller_id":      sellerID.String(),
		"customer_id":    customerID.String(),
		"payment_method": "cod",
		"items": []gin.H{
			{"product_id": env.node.Generate().String(), "sku": "SKU-1", "name": "Bottle", "unit_price": 100, "quantity": 1},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data orderdomain.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// Another customer cannot read someone else's order.
	otherToken := env.token(t, env.node.Generate(), orderdomain.RoleCustomer)
	rec = env.do(t, http.MethodGet, "/api/v1/orders/"+created.Data.ID.String(), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/orders/"+created.Data.ID.String(), customerToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func webhookPayload(eventID string, sellerID snowflake.ID) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"event": "payment.captured",
		"created_at": 1738400400,
		"payload": {
			"payment": {
				"entity": {
					"id": "pay_abc",
					"amount": 99900,
					"currency": "INR",
					"notes": {"seller_id": %q, "tier": "starter", "interval": "monthly"}
				}
			}
		}
	}`, eventID, sellerID.String()))
}

func TestWebhook_BadSignature(t *testing.T) {
	env := newServerEnv(t)
	payload := webhookPayload("evt_1", env.node.Generate())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set("X-Razorpay-Signature", "deadbeef")
	rec := httptest.NewRecorder()
	env.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var count int64
	require.NoError(t, env.db.Model(&paymentdomain.EventRecord{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestWebhook_ActivatesAndDeduplicates(t *testing.T) {
	env := newServerEnv(t)
	sellerID := env.node.Generate()
	payload := webhookPayload("evt_2", sellerID)

	deliver := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(payload))
		req.Header.Set("X-Razorpay-Signature", sign(payload))
		rec := httptest.NewRecorder()
		env.engine.ServeHTTP(rec, req)
		return rec
	}

	first := deliver()
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	var sub subscriptiondomain.Subscription
	require.NoError(t, env.db.Where("seller_id = ?", sellerID).First(&sub).Error)
	assert.Equal(t, subscriptiondomain.TierStarter, sub.Tier)

	// Redelivery acks without reprocessing.
	second := deliver()
	assert.Equal(t, http.StatusOK, second.Code)

	require.NoError(t, env.db.Where("seller_id = ?", sellerID).First(&sub).Error)
	assert.Equal(t, 1, sub.MonthsSubscribed)
}

func TestSubscriptionAPI(t *testing.T) {
	env := newServerEnv(t)
	sellerID := env.node.Generate()
	sellerToken := env.token(t, sellerID, orderdomain.RoleSeller)

	rec := env.do(t, http.MethodGet, "/api/v1/subscription", sellerToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/subscription/upgrade", sellerToken, gin.H{
		"tier":     "professional",
		"interval": "yearly",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data subscriptiondomain.UpgradeDescriptor `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(249900*12*80/100), resp.Data.Amount)
	assert.Contains(t, resp.Data.ProviderOrderID, "order_")

	// Customers have no subscription surface.
	customerToken := env.token(t, env.node.Generate(), orderdomain.RoleCustomer)
	rec = env.do(t, http.MethodGet, "/api/v1/subscription", customerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
