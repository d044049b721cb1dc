// internal/handlers/sale/sale_handler.go
package sale

import (
	"context"
	"net/http"
	"strconv"

	"duka-service/internal/domain/sale"
	"duka-service/internal/middleware"
	"duka-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Service interface {
	RecordSale(ctx context.Context, shopID, cashierID int64, req *sale.CreateSaleRequest) (*sale.Sale, error)
	GetSale(ctx context.Context, shopID, id int64) (*sale.Sale, error)
}

type SaleHandler struct {
	service Service
}

func NewSaleHandler(service Service) *SaleHandler {
	return &SaleHandler{service: service}
}

// RecordSale prices every line server side and stores the sale.
func (h *SaleHandler) RecordSale(c *gin.Context) {
	shopID, ok := middleware.ShopIDOrAbort(c)
	if !ok {
		return
	}

	var req sale.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	recorded, err := h.service.RecordSale(c.Request.Context(), shopID, middleware.MustGetActor(c).UserID(), &req)
	if err != nil {
		response.FromError(c, err, "failed to record sale")
		return
	}

	response.Success(c, http.StatusCreated, "sale recorded", recorded)
}

func (h *SaleHandler) GetSale(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid sale ID", err)
		return
	}

	shopID, ok := middleware.ShopIDOrAbort(c)
	if !ok {
		return
	}

	found, err := h.service.GetSale(c.Request.Context(), shopID, id)
	if err != nil {
		response.FromError(c, err, "failed to load sale")
		return
	}

	response.Success(c, http.StatusOK, "sale retrieved", found)
}
