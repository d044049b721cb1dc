// internal/handlers/subscription/subscription_handler.go
package subscription

import (
	"context"
	"net/http"
	"strconv"

	"duka-service/internal/domain/shop"
	"duka-service/internal/domain/subscription"
	"duka-service/internal/middleware"
	"duka-service/internal/pkg/response"
	"duka-service/internal/service/entitlement"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PlanCatalog interface {
	PublicPlans(ctx context.Context) ([]subscription.PublicPlan, error)
}

type StatusReader interface {
	Status(ctx context.Context, actor shop.Actor, tenant entitlement.Tenant) (*subscription.StatusView, error)
}

type PaymentService interface {
	Initiate(ctx context.Context, shopID int64, req *subscription.InitiatePaymentRequest) (*subscription.InitiatePaymentResponse, error)
	PollStatus(ctx context.Context, shopID, paymentID int64) (*subscription.PaymentStatusResponse, error)
}

type SubscriptionHandler struct {
	catalog  PlanCatalog
	status   StatusReader
	payments PaymentService
	logger   *zap.Logger
}

func NewSubscriptionHandler(catalog PlanCatalog, status StatusReader, payments PaymentService, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		catalog:  catalog,
		status:   status,
		payments: payments,
		logger:   logger,
	}
}

// ListPlans returns the public pricing catalog.
func (h *SubscriptionHandler) ListPlans(c *gin.Context) {
	plans, err := h.catalog.PublicPlans(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list plans", zap.Error(err))
		response.FromError(c, err, "failed to list plans")
		return
	}

	response.Success(c, http.StatusOK, "plans retrieved", plans)
}

// GetStatus returns the dashboard banner view for the caller's shop.
func (h *SubscriptionHandler) GetStatus(c *gin.Context) {
	actor := middleware.MustGetActor(c)
	tenant, _ := middleware.GetTenant(c)

	view, err := h.status.Status(c.Request.Context(), actor, tenant)
	if err != nil {
		h.logger.Error("failed to compute subscription status", zap.Int64("shop_id", tenant.ShopID), zap.Error(err))
		response.FromError(c, err, "failed to load subscription status")
		return
	}

	response.Success(c, http.StatusOK, "subscription status retrieved", view)
}

// InitiatePayment starts a USSD push for a plan and cycle.
func (h *SubscriptionHandler) InitiatePayment(c *gin.Context) {
	var req subscription.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	shopID, _ := middleware.GetShopID(c)
	result, err := h.payments.Initiate(c.Request.Context(), shopID, &req)
	if err != nil {
		response.FromError(c, err, "failed to initiate payment")
		return
	}

	response.Success(c, http.StatusAccepted, result.Message, result)
}

// PaymentStatus polls the gateway for a pending payment.
func (h *SubscriptionHandler) PaymentStatus(c *gin.Context) {
	paymentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payment ID", err)
		return
	}

	shopID, ok := middleware.ShopIDOrAbort(c)
	if !ok {
		return
	}

	result, err := h.payments.PollStatus(c.Request.Context(), shopID, paymentID)
	if err != nil {
		response.FromError(c, err, "failed to check payment status")
		return
	}

	response.Success(c, http.StatusOK, "payment status retrieved", result)
}
