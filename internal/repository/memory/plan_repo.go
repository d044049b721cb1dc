// internal/repository/memory/plan_repo.go
package memory

import (
	"context"
	"sort"
	"time"

	"duka-service/internal/domain/subscription"
	xerrors "duka-service/internal/pkg/errors"
)

type PlanRepository struct {
	s *Store
}

func (r *PlanRepository) Create(_ context.Context, p *subscription.Plan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.plans {
		if existing.Slug == p.Slug {
			return xerrors.ErrConflict
		}
	}
	p.ID = r.s.id()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.UpdatedAt = p.CreatedAt
	cp := *p
	r.s.plans[p.ID] = &cp
	return nil
}

func (r *PlanRepository) FindByID(_ context.Context, id int64) (*subscription.Plan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.plans[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// GetOrCreateBySlug returns the plan with defaults' slug, inserting defaults
// when there is none.
func (r *PlanRepository) GetOrCreateBySlug(_ context.Context, defaults *subscription.Plan) (*subscription.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.plans {
		if p.Slug == defaults.Slug {
			cp := *p
			return &cp, nil
		}
	}

	cp := *defaults
	cp.ID = r.s.id()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	cp.UpdatedAt = cp.CreatedAt
	r.s.plans[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *PlanRepository) ListActive(_ context.Context) ([]subscription.Plan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []subscription.Plan
	for _, p := range r.s.plans {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
