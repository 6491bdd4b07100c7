package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vendaro/vendaro/internal/analytics"
	"github.com/vendaro/vendaro/internal/config"
	"github.com/vendaro/vendaro/internal/events"
	"github.com/vendaro/vendaro/internal/notifier"
	obslogger "github.com/vendaro/vendaro/internal/observability/logger"
	obsmetrics "github.com/vendaro/vendaro/internal/observability/metrics"
	"github.com/vendaro/vendaro/internal/order"
	orderdomain "github.com/vendaro/vendaro/internal/order/domain"
	"github.com/vendaro/vendaro/internal/payment"
	paymentdomain "github.com/vendaro/vendaro/internal/payment/domain"
	"github.com/vendaro/vendaro/internal/subscription"
	subscriptiondomain "github.com/vendaro/vendaro/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module assembles the HTTP server and the feature modules it serves.
var Module = fx.Module("http.server",
	notifier.Module,
	events.Module,
	analytics.Module,
	order.Module,
	subscription.Module,
	payment.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

// NewEngine builds the gin engine with the shared middleware chain.
func NewEngine(cfg config.Config, log *zap.Logger, registry *prometheus.Registry, m *obsmetrics.Metrics) *gin.Engine {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(obsmetrics.GinMiddleware(m))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	db              *gorm.DB
	genID           *snowflake.Node
	orderSvc        orderdomain.Service
	subscriptionSvc subscriptiondomain.Service
	paymentSvc      paymentdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	DB              *gorm.DB
	GenID           *snowflake.Node
	OrderSvc        orderdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	PaymentSvc      paymentdomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		db:              p.DB,
		genID:           p.GenID,
		orderSvc:        p.OrderSvc,
		subscriptionSvc: p.SubscriptionSvc,
		paymentSvc:      p.PaymentSvc,
	}
}

func registerRoutes(s *Server) {
	s.RegisterAPIRoutes()
	s.RegisterWebhookRoutes()
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api/v1", s.AuthRequired())
	{
		orders := api.Group("/orders")
		{
			orders.POST("", s.CreateOrder)
			orders.GET("", s.ListOrders)
			orders.GET("/:id", s.GetOrder)
			orders.POST("/:id/transition", s.TransitionOrder)
			orders.POST("/:id/cancel", s.CancelOrder)
			orders.POST("/:id/return", s.RequestReturn)
			orders.POST("/:id/return/decision", s.RequireRole(orderdomain.RoleAdmin, orderdomain.RoleSeller), s.ProcessReturn)
			orders.POST("/:id/return/refund", s.RequireRole(orderdomain.RoleAdmin, orderdomain.RoleSeller), s.CompleteRefund)
		}

		subscriptions := api.Group("/subscription", s.RequireRole(orderdomain.RoleAdmin, orderdomain.RoleSeller))
		{
			subscriptions.GET("", s.GetSubscription)
			subscriptions.POST("/upgrade", s.PrepareUpgrade)
		}
	}
}

func (s *Server) RegisterWebhookRoutes() {
	// Authenticated by signature, not bearer token.
	s.engine.POST("/webhooks/payment", s.HandlePaymentWebhook)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
