// internal/repository/postgres/shop_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"duka-service/internal/domain/promotion"
	"duka-service/internal/domain/shop"
	xerrors "duka-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
)

type ShopRepository struct {
	db Pool
}

func NewShopRepository(db Pool) *ShopRepository {
	return &ShopRepository{db: db}
}

func (r *ShopRepository) Create(ctx context.Context, sh *shop.Shop) error {
	query := `
		INSERT INTO shops (owner_id, name, location, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, updated_at
	`

	err := r.db.QueryRow(ctx, query, sh.OwnerID, sh.Name, sh.Location, sh.CreatedAt).Scan(&sh.ID, &sh.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create shop: %w", err)
	}
	return nil
}

func (r *ShopRepository) FindByID(ctx context.Context, id int64) (*shop.Shop, error) {
	query := `
		SELECT id, owner_id, name, location, created_at, updated_at
		FROM shops
		WHERE id = $1
	`
	return r.scanOne(ctx, query, id)
}

// FindFirstByOwner returns the owner's earliest shop.
func (r *ShopRepository) FindFirstByOwner(ctx context.Context, ownerID int64) (*shop.Shop, error) {
	query := `
		SELECT id, owner_id, name, location, created_at, updated_at
		FROM shops
		WHERE owner_id = $1
		ORDER BY id
		LIMIT 1
	`
	return r.scanOne(ctx, query, ownerID)
}

func (r *ShopRepository) scanOne(ctx context.Context, query string, arg int64) (*shop.Shop, error) {
	var sh shop.Shop
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&sh.ID, &sh.OwnerID, &sh.Name, &sh.Location, &sh.CreatedAt, &sh.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find shop: %w", err)
	}
	return &sh, nil
}

type ProductRepository struct {
	db Pool
}

func NewProductRepository(db Pool) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, p *promotion.Product) error {
	query := `
		INSERT INTO products (shop_id, name, selling_price, category_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	if err := r.db.QueryRow(ctx, query, p.ShopID, p.Name, p.SellingPrice, p.CategoryID).Scan(&p.ID); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// FindByID is scoped to the shop; another shop's product is not found.
func (r *ProductRepository) FindByID(ctx context.Context, shopID, id int64) (*promotion.Product, error) {
	query := `
		SELECT id, shop_id, name, selling_price, category_id
		FROM products
		WHERE id = $1 AND shop_id = $2
	`

	var p promotion.Product
	err := r.db.QueryRow(ctx, query, id, shopID).Scan(&p.ID, &p.ShopID, &p.Name, &p.SellingPrice, &p.CategoryID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &p, nil
}

func (r *ProductRepository) ListByShop(ctx context.Context, shopID int64) ([]promotion.Product, error) {
	query := `
		SELECT id, shop_id, name, selling_price, category_id
		FROM products
		WHERE shop_id = $1
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []promotion.Product
	for rows.Next() {
		var p promotion.Product
		if err := rows.Scan(&p.ID, &p.ShopID, &p.Name, &p.SellingPrice, &p.CategoryID); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}
