package sale

import (
	"context"
	"errors"
	"fmt"
	"time"

	"duka-service/internal/domain/promotion"
	"duka-service/internal/domain/sale"
	"duka-service/internal/pkg/clock"
	xerrors "duka-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type ProductStore interface {
	FindByID(ctx context.Context, shopID, id int64) (*promotion.Product, error)
}

type SaleStore interface {
	Create(ctx context.Context, sl *sale.Sale) error
	FindByID(ctx context.Context, shopID, id int64) (*sale.Sale, error)
}

type Pricer interface {
	ComputePrice(ctx context.Context, product *promotion.Product, shopID int64, instant time.Time) promotion.Quote
}

type SaleService struct {
	products ProductStore
	sales    SaleStore
	pricer   Pricer
	clock    clock.Clock
	logger   *zap.Logger
}

func NewSaleService(products ProductStore, sales SaleStore, pricer Pricer, clk clock.Clock, logger *zap.Logger) *SaleService {
	return &SaleService{
		products: products,
		sales:    sales,
		pricer:   pricer,
		clock:    clk,
		logger:   logger,
	}
}

// RecordSale prices every line at one instant and stores the sale with its
// items in a single write.
func (s *SaleService) RecordSale(ctx context.Context, shopID, cashierID int64, req *sale.CreateSaleRequest) (*sale.Sale, error) {
	if len(req.Items) == 0 {
		return nil, xerrors.New(xerrors.ErrInvalidInput, "a sale needs at least one item", nil)
	}

	now := s.clock.Now()
	sl := &sale.Sale{
		ShopID:    shopID,
		CashierID: cashierID,
		CreatedAt: now,
		Items:     make([]sale.SaleItem, 0, len(req.Items)),
	}

	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, xerrors.New(xerrors.ErrInvalidInput, "quantity must be at least 1", nil)
		}
		product, err := s.products.FindByID(ctx, shopID, line.ProductID)
		if err != nil {
			if errors.Is(err, xerrors.ErrNotFound) {
				return nil, xerrors.New(xerrors.ErrNotFound, fmt.Sprintf("product %d not found", line.ProductID), err)
			}
			return nil, fmt.Errorf("failed to load product %d: %w", line.ProductID, err)
		}

		quote := s.pricer.ComputePrice(ctx, product, shopID, now)
		item := sale.SaleItem{
			ProductID:       product.ID,
			Quantity:        line.Quantity,
			UnitPrice:       quote.FinalPrice,
			OriginalPrice:   quote.OriginalPrice,
			DiscountApplied: quote.DiscountApplied,
			DiscountPercent: quote.DiscountPercent,
			LineTotal:       quote.FinalPrice * float64(line.Quantity),
		}
		if quote.DiscountApplied {
			item.RuleID.Int64, item.RuleID.Valid = quote.RuleID, true
		}
		sl.Items = append(sl.Items, item)
		sl.TotalAmount += item.LineTotal
	}

	if err := s.sales.Create(ctx, sl); err != nil {
		return nil, fmt.Errorf("failed to record sale: %w", err)
	}

	s.logger.Info("sale recorded",
		zap.Int64("shop_id", shopID),
		zap.Int64("sale_id", sl.ID),
		zap.Int("items", len(sl.Items)),
		zap.Float64("total", sl.TotalAmount),
	)
	return sl, nil
}

func (s *SaleService) GetSale(ctx context.Context, shopID, id int64) (*sale.Sale, error) {
	sl, err := s.sales.FindByID(ctx, shopID, id)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.New(xerrors.ErrNotFound, "sale not found", err)
		}
		return nil, fmt.Errorf("failed to load sale: %w", err)
	}
	return sl, nil
}
