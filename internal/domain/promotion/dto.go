// internal/domain/promotion/dto.go
package promotion

import (
	"fmt"

	xerrors "duka-service/internal/pkg/errors"
)

type CreateRuleRequest struct {
	Name            string    `json:"name" binding:"required,max=100"`
	DiscountPercent float64   `json:"discount_percent" binding:"required"`
	StartTime       TimeOfDay `json:"start_time"`
	EndTime         TimeOfDay `json:"end_time"`
	DaysOfWeek      []int64   `json:"days_of_week" binding:"required,min=1"`
	ProductIDs      []int64   `json:"product_ids"`
	CategoryIDs     []int64   `json:"category_ids"`
	IsActive        *bool     `json:"is_active"`
}

// Validate enforces what the pricing engine assumes about stored rules.
func (r *CreateRuleRequest) Validate() error {
	if r.DiscountPercent <= 0 || r.DiscountPercent >= 100 {
		return xerrors.New(xerrors.ErrInvalidInput, "discount_percent must be greater than 0 and less than 100", nil)
	}
	if !r.StartTime.Valid() || !r.EndTime.Valid() {
		return xerrors.New(xerrors.ErrInvalidInput, "start_time and end_time must be valid times of day", nil)
	}
	if r.StartTime > r.EndTime {
		return xerrors.New(xerrors.ErrInvalidInput, "start_time must not be after end_time", nil)
	}
	for _, d := range r.DaysOfWeek {
		if d < int64(Monday) || d > int64(Sunday) {
			return xerrors.New(xerrors.ErrInvalidInput, fmt.Sprintf("invalid weekday %d (0=Monday..6=Sunday)", d), nil)
		}
	}
	if len(r.ProductIDs) == 0 && len(r.CategoryIDs) == 0 {
		return xerrors.New(xerrors.ErrInvalidInput, "a rule must target at least one product or category", nil)
	}
	return nil
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type CreateProductRequest struct {
	Name         string  `json:"name" binding:"required,max=255"`
	SellingPrice float64 `json:"selling_price" binding:"required,gt=0"`
	CategoryID   *int64  `json:"category_id"`
}
