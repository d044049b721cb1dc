package shop

import (
	"context"
	"testing"
	"time"

	"duka-service/internal/domain/promotion"
	"duka-service/internal/domain/shop"
	"duka-service/internal/domain/subscription"
	"duka-service/internal/pkg/clock"
	xerrors "duka-service/internal/pkg/errors"
	"duka-service/internal/repository/memory"
	"duka-service/internal/service/pricing"
	subscriptionsvc "duka-service/internal/service/subscription"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var created = time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*ShopService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	clk := clock.NewFixed(created)
	trials := subscriptionsvc.NewProvisioner(store.Plans(), store.Subscriptions(), clk, zap.NewNop())
	engine := pricing.NewEngine(store.Rules(), nil, zap.NewNop())
	return NewShopService(store.Shops(), store.Products(), trials, engine, clk, zap.NewNop()), store
}

func TestCreateShop_StartsTrial(t *testing.T) {
	svc, store := newService(t)

	sh, sub, err := svc.CreateShop(context.Background(), shop.Owner{ID: 3}, &shop.CreateShopRequest{Name: "Duka la Mama"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), sh.OwnerID)
	assert.True(t, sh.CreatedAt.Equal(created))

	require.NotNil(t, sub)
	assert.Equal(t, subscription.StatusTrial, sub.Status)
	assert.True(t, sub.EndDate.Equal(created.AddDate(0, 0, 7)))

	found, err := store.Shops().FindFirstByOwner(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, sh.ID, found.ID)
}

func TestCreateShop_Rules(t *testing.T) {
	svc, _ := newService(t)

	_, _, err := svc.CreateShop(context.Background(), shop.Employee{ID: 4, ShopID: 1}, &shop.CreateShopRequest{Name: "x"})
	assert.ErrorIs(t, err, xerrors.ErrForbidden)

	_, _, err = svc.CreateShop(context.Background(), shop.Owner{ID: 3}, &shop.CreateShopRequest{Name: "first"})
	require.NoError(t, err)
	_, _, err = svc.CreateShop(context.Background(), shop.Owner{ID: 3}, &shop.CreateShopRequest{Name: "second"})
	assert.ErrorIs(t, err, xerrors.ErrConflict)
}

func TestProductsAndQuote(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	cat := int64(8)

	p, err := svc.AddProduct(ctx, 1, &promotion.CreateProductRequest{Name: "Rice 1kg", SellingPrice: 3500, CategoryID: &cat})
	require.NoError(t, err)
	assert.True(t, p.CategoryID.Valid)

	_, err = svc.AddProduct(ctx, 1, &promotion.CreateProductRequest{Name: "Free", SellingPrice: 0})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	list, err := svc.ListProducts(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	q, err := svc.QuotePrice(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3500.0, q.FinalPrice)
	assert.False(t, q.DiscountApplied)

	_, err = svc.QuotePrice(ctx, 2, p.ID)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}
