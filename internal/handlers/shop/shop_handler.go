// internal/handlers/shop/shop_handler.go
package shop

import (
	"context"
	"net/http"
	"strconv"

	"duka-service/internal/domain/promotion"
	"duka-service/internal/domain/shop"
	"duka-service/internal/domain/subscription"
	"duka-service/internal/middleware"
	"duka-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Service interface {
	CreateShop(ctx context.Context, actor shop.Actor, req *shop.CreateShopRequest) (*shop.Shop, *subscription.ShopSubscription, error)
	AddProduct(ctx context.Context, shopID int64, req *promotion.CreateProductRequest) (*promotion.Product, error)
	ListProducts(ctx context.Context, shopID int64) ([]promotion.Product, error)
	QuotePrice(ctx context.Context, shopID, productID int64) (*promotion.Quote, error)
}

type ShopHandler struct {
	service Service
}

func NewShopHandler(service Service) *ShopHandler {
	return &ShopHandler{service: service}
}

// CreateShop registers the owner's shop and starts its free trial.
func (h *ShopHandler) CreateShop(c *gin.Context) {
	var req shop.CreateShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	created, sub, err := h.service.CreateShop(c.Request.Context(), middleware.MustGetActor(c), &req)
	if err != nil {
		response.FromError(c, err, "failed to create shop")
		return
	}

	response.Success(c, http.StatusCreated, "shop created", gin.H{
		"shop":         created,
		"subscription": sub,
	})
}

func (h *ShopHandler) AddProduct(c *gin.Context) {
	shopID, ok := middleware.ShopIDOrAbort(c)
	if !ok {
		return
	}

	var req promotion.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	product, err := h.service.AddProduct(c.Request.Context(), shopID, &req)
	if err != nil {
		response.FromError(c, err, "failed to add product")
		return
	}

	response.Success(c, http.StatusCreated, "product created", product)
}

func (h *ShopHandler) ListProducts(c *gin.Context) {
	shopID, ok := middleware.ShopIDOrAbort(c)
	if !ok {
		return
	}

	products, err := h.service.ListProducts(c.Request.Context(), shopID)
	if err != nil {
		response.FromError(c, err, "failed to list products")
		return
	}

	response.Success(c, http.StatusOK, "products retrieved", products)
}

// QuotePrice returns the price the till should charge right now.
func (h *ShopHandler) QuotePrice(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid product ID", err)
		return
	}

	shopID, ok := middleware.ShopIDOrAbort(c)
	if !ok {
		return
	}

	quote, err := h.service.QuotePrice(c.Request.Context(), shopID, productID)
	if err != nil {
		response.FromError(c, err, "failed to price product")
		return
	}

	response.Success(c, http.StatusOK, "price computed", quote)
}
