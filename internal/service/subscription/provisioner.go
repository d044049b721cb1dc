package subscription

import (
	"context"
	"errors"
	"fmt"

	"duka-service/internal/domain/subscription"
	"duka-service/internal/pkg/clock"
	xerrors "duka-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// TrialPlan is the catalog row every new shop's trial points at.
func TrialPlan() *subscription.Plan {
	return &subscription.Plan{
		Name:        subscription.TrialPlanName,
		Slug:        subscription.TrialPlanSlug,
		Description: "Try every feature free for a week",
		MaxShops:    1,
		MaxUsers:    1,
		MaxProducts: 50,
		IsActive:    true,
	}
}

// Provisioner gives newly created shops their trial subscription.
type Provisioner struct {
	plans  PlanStore
	ledger Ledger
	clock  clock.Clock
	logger *zap.Logger
}

func NewProvisioner(plans PlanStore, ledger Ledger, clk clock.Clock, logger *zap.Logger) *Provisioner {
	return &Provisioner{plans: plans, ledger: ledger, clock: clk, logger: logger}
}

// ProvisionTrial creates a TRIAL row ending TrialDays from now. A shop that
// already has a subscription row keeps it.
func (p *Provisioner) ProvisionTrial(ctx context.Context, shopID int64) (*subscription.ShopSubscription, error) {
	plan, err := p.plans.GetOrCreateBySlug(ctx, TrialPlan())
	if err != nil {
		return nil, fmt.Errorf("failed to load trial plan: %w", err)
	}

	now := p.clock.Now()
	sub := &subscription.ShopSubscription{
		ShopID:       shopID,
		PlanID:       plan.ID,
		Status:       subscription.StatusTrial,
		BillingCycle: subscription.CycleWeekly,
		StartDate:    now,
		EndDate:      now.AddDate(0, 0, subscription.TrialDays),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.ledger.Create(ctx, sub); err != nil {
		if errors.Is(err, xerrors.ErrConflict) {
			p.logger.Info("shop already has a subscription, trial skipped", zap.Int64("shop_id", shopID))
			return p.ledger.FindByShop(ctx, shopID)
		}
		return nil, fmt.Errorf("failed to create trial subscription: %w", err)
	}

	p.logger.Info("trial provisioned",
		zap.Int64("shop_id", shopID),
		zap.Time("end_date", sub.EndDate),
	)
	return sub, nil
}
