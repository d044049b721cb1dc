// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"duka-service/internal/config"
	"duka-service/internal/db"
	promotionHandler "duka-service/internal/handlers/promotion"
	saleHandler "duka-service/internal/handlers/sale"
	shopHandler "duka-service/internal/handlers/shop"
	subscriptionHandler "duka-service/internal/handlers/subscription"
	wsHandler "duka-service/internal/handlers/websocket"
	"duka-service/internal/metrics"
	"duka-service/internal/middleware"
	"duka-service/internal/pkg/clickpesa"
	"duka-service/internal/pkg/clock"
	"duka-service/internal/pkg/jwt"
	"duka-service/internal/service/entitlement"
	"duka-service/internal/service/pricing"
	promotionsvc "duka-service/internal/service/promotion"
	salesvc "duka-service/internal/service/sale"
	shopsvc "duka-service/internal/service/shop"
	subscriptionsvc "duka-service/internal/service/subscription"
	"duka-service/internal/websocket"
	wsHandlers "duka-service/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const gatewayTokenKey = "duka:clickpesa:token"

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	http   *http.Server
	hub    *websocket.Hub

	stopHub context.CancelFunc
	closers []func()
}

// NewServer connects the backends and wires every handler. Without
// DATABASE_URL the service runs on in-memory repositories.
func NewServer(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*Server, error) {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{cfg: cfg, engine: gin.New(), logger: logger}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", cfg.TimeZone, err)
	}
	clk := clock.NewSystem(loc)

	// ----- Storage -----
	var repos *repositories
	if cfg.DatabaseURL != "" {
		pool, err := db.ConnectDB(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		repos = postgresRepositories(pool)
		logger.Info("connected to postgres")
	} else {
		repos = memoryRepositories()
		if err := seedPlans(ctx, repos.plans); err != nil {
			return nil, err
		}
		logger.Warn("DATABASE_URL not set, using in-memory storage")
	}

	// ----- Gateway token store -----
	var tokens clickpesa.TokenStore = clickpesa.NewMemoryTokenStore()
	if cfg.RedisAddr != "" {
		redisClient, err := db.NewRedisClient(ctx, db.RedisConfig{
			Addresses: []string{cfg.RedisAddr},
			Password:  cfg.RedisPass,
			DB:        cfg.RedisDB,
			PoolSize:  10,
		})
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = redisClient.Close() })
		tokens = clickpesa.NewRedisTokenStore(redisClient, gatewayTokenKey)
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	}

	// ----- JWT -----
	jwtManager, err := jwt.LoadAndBuild(cfg.JWT)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to load JWT manager: %w", err)
	}

	// ----- Metrics -----
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// ----- WebSocket Hub -----
	s.hub = websocket.NewHub(logger.Named("ws"))

	// ----- Services -----
	gateway := clickpesa.NewClient(cfg.ClickPesa, tokens, m, logger.Named("clickpesa"))
	engine := pricing.NewEngine(repos.rules, m, logger)
	gate := entitlement.NewGate(repos.shops, repos.ledger, repos.plans, cfg.Gate, clk, m, logger)
	provisioner := subscriptionsvc.NewProvisioner(repos.plans, repos.ledger, clk, logger)
	catalog := subscriptionsvc.NewCatalog(repos.plans)
	reconciler := subscriptionsvc.NewReconciler(repos.plans, repos.ledger, gateway, s.hub, clk, m, logger)
	shopService := shopsvc.NewShopService(repos.shops, repos.products, provisioner, engine, clk, logger)
	saleService := salesvc.NewSaleService(repos.products, repos.sales, engine, clk, logger)
	promotionService := promotionsvc.NewPromotionService(repos.rules, repos.products, clk, logger)

	if err := s.hub.RegisterHandler(wsHandlers.NewPaymentHandler(reconciler, logger)); err != nil {
		s.Close()
		return nil, err
	}
	hubCtx, stopHub := context.WithCancel(context.Background())
	s.stopHub = stopHub
	go s.hub.Run(hubCtx)

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(cfg.CORSOrigins),
	)

	// ----- Router -----
	SetupRouter(s.engine, &Handlers{
		ShopHandler:         shopHandler.NewShopHandler(shopService),
		SaleHandler:         saleHandler.NewSaleHandler(saleService),
		PromotionHandler:    promotionHandler.NewPromotionHandler(promotionService),
		SubscriptionHandler: subscriptionHandler.NewSubscriptionHandler(catalog, gate, reconciler, logger),
		WSHandler:           wsHandler.NewWebSocketHandler(s.hub, cfg.CORSOrigins, logger),
		AuthMiddleware:      middleware.NewAuthMiddleware(jwtManager.Verifier, logger),
		GateMiddleware:      middleware.NewGateMiddleware(gate, logger),
		Metrics:             registry,
	})

	s.http = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP, disconnects websocket clients and closes the pools.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.Close()
	return err
}

func (s *Server) Close() {
	if s.stopHub != nil {
		s.stopHub()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
