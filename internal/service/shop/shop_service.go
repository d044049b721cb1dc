package shop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"duka-service/internal/domain/promotion"
	"duka-service/internal/domain/shop"
	"duka-service/internal/domain/subscription"
	"duka-service/internal/pkg/clock"
	xerrors "duka-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type ShopStore interface {
	Create(ctx context.Context, sh *shop.Shop) error
	FindFirstByOwner(ctx context.Context, ownerID int64) (*shop.Shop, error)
}

type ProductStore interface {
	Create(ctx context.Context, p *promotion.Product) error
	FindByID(ctx context.Context, shopID, id int64) (*promotion.Product, error)
	ListByShop(ctx context.Context, shopID int64) ([]promotion.Product, error)
}

type TrialProvisioner interface {
	ProvisionTrial(ctx context.Context, shopID int64) (*subscription.ShopSubscription, error)
}

type Pricer interface {
	ComputePrice(ctx context.Context, product *promotion.Product, shopID int64, instant time.Time) promotion.Quote
}

// ShopService registers shops and their inventory.
type ShopService struct {
	shops    ShopStore
	products ProductStore
	trials   TrialProvisioner
	pricer   Pricer
	clock    clock.Clock
	logger   *zap.Logger
}

func NewShopService(shops ShopStore, products ProductStore, trials TrialProvisioner, pricer Pricer, clk clock.Clock, logger *zap.Logger) *ShopService {
	return &ShopService{
		shops:    shops,
		products: products,
		trials:   trials,
		pricer:   pricer,
		clock:    clk,
		logger:   logger,
	}
}

// CreateShop registers the owner's shop and starts its trial. An owner has
// at most one shop.
func (s *ShopService) CreateShop(ctx context.Context, actor shop.Actor, req *shop.CreateShopRequest) (*shop.Shop, *subscription.ShopSubscription, error) {
	if actor == nil || actor.Role() != shop.RoleOwner {
		return nil, nil, xerrors.New(xerrors.ErrForbidden, "only shop owners can create a shop", nil)
	}

	existing, err := s.shops.FindFirstByOwner(ctx, actor.UserID())
	switch {
	case err == nil:
		return nil, nil, xerrors.New(xerrors.ErrConflict, fmt.Sprintf("you already own %q", existing.Name), nil)
	case !errors.Is(err, xerrors.ErrNotFound):
		return nil, nil, fmt.Errorf("failed to check existing shop: %w", err)
	}

	now := s.clock.Now()
	sh := &shop.Shop{
		OwnerID:   actor.UserID(),
		Name:      strings.TrimSpace(req.Name),
		Location:  strings.TrimSpace(req.Location),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.shops.Create(ctx, sh); err != nil {
		return nil, nil, fmt.Errorf("failed to create shop: %w", err)
	}

	sub, err := s.trials.ProvisionTrial(ctx, sh.ID)
	if err != nil {
		// The registration trial still covers the shop for its first week.
		s.logger.Error("failed to provision trial", zap.Int64("shop_id", sh.ID), zap.Error(err))
	}

	s.logger.Info("shop created", zap.Int64("shop_id", sh.ID), zap.Int64("owner_id", sh.OwnerID))
	return sh, sub, nil
}

func (s *ShopService) AddProduct(ctx context.Context, shopID int64, req *promotion.CreateProductRequest) (*promotion.Product, error) {
	if req.SellingPrice <= 0 {
		return nil, xerrors.New(xerrors.ErrInvalidInput, "selling_price must be positive", nil)
	}

	p := &promotion.Product{
		ShopID:       shopID,
		Name:         strings.TrimSpace(req.Name),
		SellingPrice: req.SellingPrice,
	}
	if req.CategoryID != nil {
		p.CategoryID = sql.NullInt64{Int64: *req.CategoryID, Valid: true}
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return p, nil
}

func (s *ShopService) ListProducts(ctx context.Context, shopID int64) ([]promotion.Product, error) {
	products, err := s.products.ListByShop(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if products == nil {
		products = []promotion.Product{}
	}
	return products, nil
}

// QuotePrice is the price the till would charge for the product right now.
func (s *ShopService) QuotePrice(ctx context.Context, shopID, productID int64) (*promotion.Quote, error) {
	p, err := s.products.FindByID(ctx, shopID, productID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.New(xerrors.ErrNotFound, "product not found", err)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	q := s.pricer.ComputePrice(ctx, p, shopID, s.clock.Now())
	return &q, nil
}
