// internal/domain/sale/dto.go
package sale

type CreateSaleRequest struct {
	Items []SaleLineRequest `json:"items" binding:"required,min=1,dive"`
}

// SaleLineRequest has no price field. Prices are computed server side.
type SaleLineRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}
