// internal/domain/shop/dto.go
package shop

type CreateShopRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Location string `json:"location" binding:"max=255"`
}
