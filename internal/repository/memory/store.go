// internal/repository/memory/store.go
package memory

import (
	"sync"

	"duka-service/internal/domain/promotion"
	"duka-service/internal/domain/sale"
	"duka-service/internal/domain/shop"
	"duka-service/internal/domain/subscription"
)

// Store keeps every table in maps behind one lock, which makes each
// repository method atomic in the same way a postgres transaction is.
type Store struct {
	mu sync.RWMutex

	shops         map[int64]*shop.Shop
	products      map[int64]*promotion.Product
	rules         map[int64]*promotion.Rule
	plans         map[int64]*subscription.Plan
	subscriptions map[int64]*subscription.ShopSubscription // keyed by shop id
	payments      map[int64]*subscription.Payment
	sales         map[int64]*sale.Sale

	nextID int64
}

func NewStore() *Store {
	return &Store{
		shops:         make(map[int64]*shop.Shop),
		products:      make(map[int64]*promotion.Product),
		rules:         make(map[int64]*promotion.Rule),
		plans:         make(map[int64]*subscription.Plan),
		subscriptions: make(map[int64]*subscription.ShopSubscription),
		payments:      make(map[int64]*subscription.Payment),
		sales:         make(map[int64]*sale.Sale),
	}
}

// id must be called with mu held for writing.
func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Shops() *ShopRepository                 { return &ShopRepository{s: s} }
func (s *Store) Products() *ProductRepository           { return &ProductRepository{s: s} }
func (s *Store) Rules() *RuleRepository                 { return &RuleRepository{s: s} }
func (s *Store) Plans() *PlanRepository                 { return &PlanRepository{s: s} }
func (s *Store) Subscriptions() *SubscriptionRepository { return &SubscriptionRepository{s: s} }
func (s *Store) Sales() *SaleRepository                 { return &SaleRepository{s: s} }
