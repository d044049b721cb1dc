// internal/repository/memory/sale_repo.go
package memory

import (
	"context"

	"duka-service/internal/domain/sale"
	xerrors "duka-service/internal/pkg/errors"
)

type SaleRepository struct {
	s *Store
}

// Create stores the sale and its items together.
func (r *SaleRepository) Create(_ context.Context, sl *sale.Sale) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sl.ID = r.s.id()
	for i := range sl.Items {
		sl.Items[i].ID = r.s.id()
		sl.Items[i].SaleID = sl.ID
	}

	cp := *sl
	cp.Items = append([]sale.SaleItem(nil), sl.Items...)
	r.s.sales[sl.ID] = &cp
	return nil
}

func (r *SaleRepository) FindByID(_ context.Context, shopID, id int64) (*sale.Sale, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sl, ok := r.s.sales[id]
	if !ok || sl.ShopID != shopID {
		return nil, xerrors.ErrNotFound
	}
	cp := *sl
	cp.Items = append([]sale.SaleItem(nil), sl.Items...)
	return &cp, nil
}
