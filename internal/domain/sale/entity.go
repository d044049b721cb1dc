// internal/domain/sale/entity.go
package sale

import (
	"database/sql"
	"time"
)

type Sale struct {
	ID          int64      `json:"id" db:"id"`
	ShopID      int64      `json:"shop_id" db:"shop_id"`
	CashierID   int64      `json:"cashier_id" db:"cashier_id"`
	TotalAmount float64    `json:"total_amount" db:"total_amount"`
	Items       []SaleItem `json:"items"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// SaleItem stores the price computed at sale time, never one sent by the client.
type SaleItem struct {
	ID              int64         `json:"id" db:"id"`
	SaleID          int64         `json:"sale_id" db:"sale_id"`
	ProductID       int64         `json:"product_id" db:"product_id"`
	Quantity        int           `json:"quantity" db:"quantity"`
	UnitPrice       float64       `json:"unit_price" db:"unit_price"`
	OriginalPrice   float64       `json:"original_price" db:"original_price"`
	DiscountApplied bool          `json:"discount_applied" db:"discount_applied"`
	DiscountPercent float64       `json:"discount_percent" db:"discount_percent"`
	RuleID          sql.NullInt64 `json:"rule_id" db:"rule_id"`
	LineTotal       float64       `json:"line_total" db:"line_total"`
}
