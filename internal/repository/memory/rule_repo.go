// internal/repository/memory/rule_repo.go
package memory

import (
	"context"
	"sort"
	"time"

	"duka-service/internal/domain/promotion"
	xerrors "duka-service/internal/pkg/errors"

	"github.com/lib/pq"
)

type RuleRepository struct {
	s *Store
}

func (r *RuleRepository) Create(_ context.Context, rule *promotion.Rule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rule.ID = r.s.id()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}
	rule.UpdatedAt = rule.CreatedAt
	r.s.rules[rule.ID] = cloneRule(rule)
	return nil
}

func (r *RuleRepository) FindByID(_ context.Context, shopID, id int64) (*promotion.Rule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rule, ok := r.s.rules[id]
	if !ok || rule.ShopID != shopID {
		return nil, xerrors.ErrNotFound
	}
	return cloneRule(rule), nil
}

func (r *RuleRepository) ListByShop(_ context.Context, shopID int64) ([]promotion.Rule, error) {
	return r.list(func(rule *promotion.Rule) bool { return rule.ShopID == shopID }), nil
}

// ListActiveAt mirrors the postgres query: active rules of the shop whose
// window contains tod, by id.
func (r *RuleRepository) ListActiveAt(_ context.Context, shopID int64, tod promotion.TimeOfDay) ([]promotion.Rule, error) {
	return r.list(func(rule *promotion.Rule) bool {
		return rule.ShopID == shopID && rule.IsActive && rule.InWindow(tod)
	}), nil
}

func (r *RuleRepository) SetActive(_ context.Context, shopID, id int64, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rule, ok := r.s.rules[id]
	if !ok || rule.ShopID != shopID {
		return xerrors.ErrNotFound
	}
	rule.IsActive = active
	rule.UpdatedAt = time.Now()
	return nil
}

func (r *RuleRepository) list(keep func(*promotion.Rule) bool) []promotion.Rule {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []promotion.Rule
	for _, rule := range r.s.rules {
		if keep(rule) {
			out = append(out, *cloneRule(rule))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func cloneRule(rule *promotion.Rule) *promotion.Rule {
	cp := *rule
	cp.DaysOfWeek = append(pq.Int64Array(nil), rule.DaysOfWeek...)
	cp.ProductIDs = append(pq.Int64Array(nil), rule.ProductIDs...)
	cp.CategoryIDs = append(pq.Int64Array(nil), rule.CategoryIDs...)
	return &cp
}
