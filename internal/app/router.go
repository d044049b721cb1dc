// internal/app/router.go
package app

import (
	"net/http"

	"duka-service/internal/domain/shop"
	promotionHandler "duka-service/internal/handlers/promotion"
	saleHandler "duka-service/internal/handlers/sale"
	shopHandler "duka-service/internal/handlers/shop"
	subscriptionHandler "duka-service/internal/handlers/subscription"
	wsHandler "duka-service/internal/handlers/websocket"
	"duka-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	ShopHandler         *shopHandler.ShopHandler
	SaleHandler         *saleHandler.SaleHandler
	PromotionHandler    *promotionHandler.PromotionHandler
	SubscriptionHandler *subscriptionHandler.SubscriptionHandler
	WSHandler           *wsHandler.WebSocketHandler
	AuthMiddleware      *middleware.AuthMiddleware
	GateMiddleware      *middleware.GateMiddleware
	Metrics             prometheus.Gatherer
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health & Metrics ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": "1.0.0"})
	})
	api.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.Metrics, promhttp.HandlerOpts{})))

	// ==================== Public ====================
	api.GET("/plans", h.SubscriptionHandler.ListPlans)

	// ==================== Authenticated ====================
	authed := api.Group("")
	authed.Use(h.AuthMiddleware.Auth(), h.GateMiddleware.Tenant())

	authed.GET("/ws", h.WSHandler.HandleConnection)
	authed.GET("/ws/stats", h.AuthMiddleware.RequireRole(shop.RoleSuperAdmin), h.WSHandler.GetStats)

	authed.POST("/shops", h.AuthMiddleware.RequireRole(shop.RoleOwner), h.ShopHandler.CreateShop)

	subscriptions := authed.Group("/subscriptions")
	{
		subscriptions.GET("/status", h.SubscriptionHandler.GetStatus)
		subscriptions.POST("/payments", h.AuthMiddleware.RequireRole(shop.RoleOwner), h.SubscriptionHandler.InitiatePayment)
		subscriptions.GET("/payments/:id/status", h.SubscriptionHandler.PaymentStatus)
	}

	// ==================== Subscription Gated ====================
	gated := authed.Group("")
	gated.Use(h.GateMiddleware.Subscription())

	products := gated.Group("/products")
	{
		products.GET("", h.ShopHandler.ListProducts)
		products.POST("", h.AuthMiddleware.RequireRole(shop.RoleOwner, shop.RoleEmployee), h.ShopHandler.AddProduct)
		products.GET("/:id/price", h.ShopHandler.QuotePrice)
	}

	sales := gated.Group("/sales")
	{
		sales.POST("", h.SaleHandler.RecordSale)
		sales.GET("/:id", h.SaleHandler.GetSale)
	}

	promotions := gated.Group("/promotions")
	{
		promotions.GET("", h.PromotionHandler.ListRules)
		promotions.POST("", h.PromotionHandler.CreateRule)
		promotions.PATCH("/:id/active", h.PromotionHandler.SetActive)
	}
}
