// internal/repository/postgres/sale_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"duka-service/internal/domain/sale"
	xerrors "duka-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
)

type SaleRepository struct {
	db *DB
}

func NewSaleRepository(db *DB) *SaleRepository {
	return &SaleRepository{db: db}
}

// Create writes the sale header and every item in one transaction.
func (r *SaleRepository) Create(ctx context.Context, sl *sale.Sale) error {
	insertSale := `
		INSERT INTO sales (shop_id, cashier_id, total_amount, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	insertItem := `
		INSERT INTO sale_items (
			sale_id, product_id, quantity, unit_price, original_price,
			discount_applied, discount_percent, rule_id, line_total
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertSale, sl.ShopID, sl.CashierID, sl.TotalAmount, sl.CreatedAt).Scan(&sl.ID); err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}

		for i := range sl.Items {
			item := &sl.Items[i]
			item.SaleID = sl.ID
			err := tx.QueryRow(
				ctx, insertItem,
				item.SaleID, item.ProductID, item.Quantity, item.UnitPrice, item.OriginalPrice,
				item.DiscountApplied, item.DiscountPercent, item.RuleID, item.LineTotal,
			).Scan(&item.ID)
			if err != nil {
				return fmt.Errorf("failed to create sale item: %w", err)
			}
		}
		return nil
	})
}

func (r *SaleRepository) FindByID(ctx context.Context, shopID, id int64) (*sale.Sale, error) {
	query := `
		SELECT id, shop_id, cashier_id, total_amount, created_at
		FROM sales
		WHERE id = $1 AND shop_id = $2
	`

	var sl sale.Sale
	err := r.db.Pool().QueryRow(ctx, query, id, shopID).Scan(&sl.ID, &sl.ShopID, &sl.CashierID, &sl.TotalAmount, &sl.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find sale: %w", err)
	}

	items := `
		SELECT id, sale_id, product_id, quantity, unit_price, original_price,
		       discount_applied, discount_percent, rule_id, line_total
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY id
	`
	rows, err := r.db.Pool().Query(ctx, items, sl.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sale items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it sale.SaleItem
		if err := rows.Scan(
			&it.ID, &it.SaleID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.OriginalPrice,
			&it.DiscountApplied, &it.DiscountPercent, &it.RuleID, &it.LineTotal,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sale item: %w", err)
		}
		sl.Items = append(sl.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sale items: %w", err)
	}
	return &sl, nil
}
