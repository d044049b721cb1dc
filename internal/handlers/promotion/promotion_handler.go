// internal/handlers/promotion/promotion_handler.go
package promotion

import (
	"context"
	"net/http"
	"strconv"

	"duka-service/internal/domain/promotion"
	"duka-service/internal/middleware"
	"duka-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Service interface {
	CreateRule(ctx context.Context, shopID int64, req *promotion.CreateRuleRequest) (*promotion.Rule, error)
	ListRules(ctx context.Context, shopID int64) ([]promotion.Rule, error)
	SetActive(ctx context.Context, shopID, ruleID int64, active bool) (*promotion.Rule, error)
}

type PromotionHandler struct {
	service Service
}

func NewPromotionHandler(service Service) *PromotionHandler {
	return &PromotionHandler{service: service}
}

func (h *PromotionHandler) CreateRule(c *gin.Context) {
	shopID, ok := middleware.ShopIDOrAbort(c)
	if !ok {
		return
	}

	var req promotion.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	rule, err := h.service.CreateRule(c.Request.Context(), shopID, &req)
	if err != nil {
		response.FromError(c, err, "failed to create promotion")
		return
	}

	response.Success(c, http.StatusCreated, "promotion created", rule)
}

func (h *PromotionHandler) ListRules(c *gin.Context) {
	shopID, ok := middleware.ShopIDOrAbort(c)
	if !ok {
		return
	}

	rules, err := h.service.ListRules(c.Request.Context(), shopID)
	if err != nil {
		response.FromError(c, err, "failed to list promotions")
		return
	}

	response.Success(c, http.StatusOK, "promotions retrieved", rules)
}

// SetActive switches a rule on or off without touching its window.
func (h *PromotionHandler) SetActive(c *gin.Context) {
	ruleID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid promotion ID", err)
		return
	}

	shopID, ok := middleware.ShopIDOrAbort(c)
	if !ok {
		return
	}

	var req promotion.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	rule, err := h.service.SetActive(c.Request.Context(), shopID, ruleID, *req.IsActive)
	if err != nil {
		response.FromError(c, err, "failed to update promotion")
		return
	}

	response.Success(c, http.StatusOK, "promotion updated", rule)
}
