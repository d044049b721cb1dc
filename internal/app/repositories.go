// internal/app/repositories.go
package app

import (
	"context"
	"fmt"

	"duka-service/internal/domain/subscription"
	"duka-service/internal/repository/memory"
	"duka-service/internal/repository/postgres"
	"duka-service/internal/service/entitlement"
	"duka-service/internal/service/pricing"
	promotionsvc "duka-service/internal/service/promotion"
	salesvc "duka-service/internal/service/sale"
	shopsvc "duka-service/internal/service/shop"
	subscriptionsvc "duka-service/internal/service/subscription"
)

type shopStore interface {
	entitlement.ShopStore
	shopsvc.ShopStore
}

type ruleStore interface {
	pricing.RuleSource
	promotionsvc.RuleStore
}

// repositories is one storage backend seen through the service interfaces.
type repositories struct {
	shops    shopStore
	products shopsvc.ProductStore
	rules    ruleStore
	plans    subscriptionsvc.PlanStore
	ledger   subscriptionsvc.Ledger
	sales    salesvc.SaleStore
}

func postgresRepositories(pool postgres.Pool) *repositories {
	db := postgres.NewDB(pool)
	return &repositories{
		shops:    postgres.NewShopRepository(pool),
		products: postgres.NewProductRepository(pool),
		rules:    postgres.NewPromotionRuleRepository(pool),
		plans:    postgres.NewSubscriptionPlanRepository(pool),
		ledger:   postgres.NewShopSubscriptionRepository(db),
		sales:    postgres.NewSaleRepository(db),
	}
}

func memoryRepositories() *repositories {
	store := memory.NewStore()
	return &repositories{
		shops:    store.Shops(),
		products: store.Products(),
		rules:    store.Rules(),
		plans:    store.Plans(),
		ledger:   store.Subscriptions(),
		sales:    store.Sales(),
	}
}

// defaultPlans is the catalog an empty in-memory backend starts with.
var defaultPlans = []subscription.Plan{
	{Name: "Kiosk", Slug: "kiosk", PriceDaily: 1000, MaxShops: 1, MaxUsers: 1, MaxProducts: 100, IsActive: true},
	{Name: "Starter", Slug: "starter", PriceMonthly: 10000, PriceYearly: 100000, MaxShops: 1, MaxUsers: 2, MaxProducts: 500, IsActive: true},
	{Name: "Business", Slug: "business", PriceMonthly: 30000, PriceYearly: 300000, MaxShops: 3, MaxUsers: 10, MaxProducts: 5000, IsActive: true},
}

func seedPlans(ctx context.Context, plans subscriptionsvc.PlanStore) error {
	for i := range defaultPlans {
		p := defaultPlans[i]
		if _, err := plans.GetOrCreateBySlug(ctx, &p); err != nil {
			return fmt.Errorf("failed to seed plan %s: %w", p.Slug, err)
		}
	}
	return nil
}
