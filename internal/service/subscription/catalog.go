package subscription

import (
	"context"
	"fmt"
	"sort"

	"duka-service/internal/domain/subscription"
)

// Catalog lists the plans shown on the pricing page.
type Catalog struct {
	plans PlanStore
}

func NewCatalog(plans PlanStore) *Catalog {
	return &Catalog{plans: plans}
}

// PublicPlans hides trial plans and orders the rest by their shortest priced
// cycle, daily first, free plans last.
func (c *Catalog) PublicPlans(ctx context.Context) ([]subscription.PublicPlan, error) {
	plans, err := c.plans.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	visible := make([]subscription.Plan, 0, len(plans))
	for _, p := range plans {
		if p.IsTrial() {
			continue
		}
		visible = append(visible, p)
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].CycleRank() < visible[j].CycleRank()
	})

	out := make([]subscription.PublicPlan, 0, len(visible))
	for i := range visible {
		p := &visible[i]
		cycle, _ := p.PrimaryCycle()
		out = append(out, subscription.PublicPlan{
			ID:           p.ID,
			Name:         p.Name,
			Slug:         p.Slug,
			Description:  p.Description,
			Features:     p.Features,
			Cycle:        cycle,
			Price:        p.PriceFor(cycle),
			DisplayPrice: p.DisplayPrice(),
			MaxShops:     p.MaxShops,
			MaxUsers:     p.MaxUsers,
			MaxProducts:  p.MaxProducts,
		})
	}
	return out, nil
}
