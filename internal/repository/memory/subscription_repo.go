// internal/repository/memory/subscription_repo.go
package memory

import (
	"context"
	"time"

	"duka-service/internal/domain/subscription"
	xerrors "duka-service/internal/pkg/errors"
)

// SubscriptionRepository holds shop subscriptions and their payments.
type SubscriptionRepository struct {
	s *Store
}

func (r *SubscriptionRepository) FindByShop(_ context.Context, shopID int64) (*subscription.ShopSubscription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sub, ok := r.s.subscriptions[shopID]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

// Create inserts the shop's only subscription row.
func (r *SubscriptionRepository) Create(_ context.Context, sub *subscription.ShopSubscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.subscriptions[sub.ShopID]; exists {
		return xerrors.ErrConflict
	}
	sub.ID = r.s.id()
	cp := *sub
	r.s.subscriptions[sub.ShopID] = &cp
	return nil
}

func (r *SubscriptionRepository) FindPayment(_ context.Context, id int64) (*subscription.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.payments[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *SubscriptionRepository) OpenCheckout(_ context.Context, co *subscription.Checkout) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.payments {
		if p.Reference == co.Payment.Reference {
			return xerrors.ErrConflict
		}
	}

	sub, ok := r.s.subscriptions[co.ShopID]
	if !ok {
		sub = &subscription.ShopSubscription{
			ID:        r.s.id(),
			ShopID:    co.ShopID,
			Status:    subscription.StatusExpired,
			StartDate: co.Now,
			EndDate:   co.Now,
			CreatedAt: co.Now,
		}
		r.s.subscriptions[co.ShopID] = sub
	}
	sub.PlanID = co.PlanID
	sub.BillingCycle = co.Cycle
	sub.UpdatedAt = co.Now

	co.Payment.ID = r.s.id()
	co.Payment.SubscriptionID = sub.ID
	co.Payment.ShopID = sub.ShopID
	co.Payment.Status = subscription.PaymentPending
	co.Payment.CreatedAt = co.Now
	co.Payment.UpdatedAt = co.Now
	p := *co.Payment
	r.s.payments[p.ID] = &p

	subCopy := *sub
	co.Subscription = &subCopy
	return nil
}

func (r *SubscriptionRepository) FailPayment(_ context.Context, paymentID int64, now time.Time) (*subscription.Payment, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.payments[paymentID]
	if !ok {
		return nil, false, xerrors.ErrNotFound
	}
	if p.Status != subscription.PaymentPending {
		cp := *p
		return &cp, false, nil
	}
	p.Status = subscription.PaymentFailed
	p.UpdatedAt = now
	cp := *p
	return &cp, true, nil
}

func (r *SubscriptionRepository) CompletePayment(_ context.Context, paymentID int64, now time.Time) (*subscription.Payment, *subscription.ShopSubscription, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.payments[paymentID]
	if !ok {
		return nil, nil, false, xerrors.ErrNotFound
	}

	var sub *subscription.ShopSubscription
	for _, candidate := range r.s.subscriptions {
		if candidate.ID == p.SubscriptionID {
			sub = candidate
			break
		}
	}
	if sub == nil {
		return nil, nil, false, xerrors.ErrNotFound
	}

	if p.Status != subscription.PaymentPending {
		pc, sc := *p, *sub
		return &pc, &sc, false, nil
	}

	p.Status = subscription.PaymentCompleted
	p.UpdatedAt = now
	sub.ApplyPayment(p, now)

	pc, sc := *p, *sub
	return &pc, &sc, true, nil
}
