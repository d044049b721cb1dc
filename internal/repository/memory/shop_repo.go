// internal/repository/memory/shop_repo.go
package memory

import (
	"context"
	"sort"
	"time"

	"duka-service/internal/domain/promotion"
	"duka-service/internal/domain/shop"
	xerrors "duka-service/internal/pkg/errors"
)

type ShopRepository struct {
	s *Store
}

func (r *ShopRepository) Create(_ context.Context, sh *shop.Shop) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sh.ID = r.s.id()
	if sh.CreatedAt.IsZero() {
		sh.CreatedAt = time.Now()
	}
	sh.UpdatedAt = sh.CreatedAt
	cp := *sh
	r.s.shops[sh.ID] = &cp
	return nil
}

func (r *ShopRepository) FindByID(_ context.Context, id int64) (*shop.Shop, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sh, ok := r.s.shops[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *sh
	return &cp, nil
}

// FindFirstByOwner returns the owner's oldest shop.
func (r *ShopRepository) FindFirstByOwner(_ context.Context, ownerID int64) (*shop.Shop, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var first *shop.Shop
	for _, sh := range r.s.shops {
		if sh.OwnerID != ownerID {
			continue
		}
		if first == nil || sh.ID < first.ID {
			first = sh
		}
	}
	if first == nil {
		return nil, xerrors.ErrNotFound
	}
	cp := *first
	return &cp, nil
}

type ProductRepository struct {
	s *Store
}

func (r *ProductRepository) Create(_ context.Context, p *promotion.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p.ID = r.s.id()
	cp := *p
	r.s.products[p.ID] = &cp
	return nil
}

// FindByID only returns products of the given shop.
func (r *ProductRepository) FindByID(_ context.Context, shopID, id int64) (*promotion.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok || p.ShopID != shopID {
		return nil, xerrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *ProductRepository) ListByShop(_ context.Context, shopID int64) ([]promotion.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []promotion.Product
	for _, p := range r.s.products {
		if p.ShopID == shopID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
