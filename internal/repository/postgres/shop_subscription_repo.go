// internal/repository/postgres/shop_subscription_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"duka-service/internal/domain/subscription"
	xerrors "duka-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
)

const subscriptionColumns = `id, shop_id, plan_id, status, billing_cycle, start_date, end_date, auto_renew, created_at, updated_at`

const paymentColumns = `p.id, p.subscription_id, s.shop_id, p.plan_id, p.billing_cycle, p.amount,
		       p.transaction_id, p.payment_method, p.phone_number, p.status, p.created_at, p.updated_at`

// ShopSubscriptionRepository is the billing ledger: one subscription row per
// shop plus its payments. Payment settlement locks both rows.
type ShopSubscriptionRepository struct {
	db *DB
}

func NewShopSubscriptionRepository(db *DB) *ShopSubscriptionRepository {
	return &ShopSubscriptionRepository{db: db}
}

func (r *ShopSubscriptionRepository) FindByShop(ctx context.Context, shopID int64) (*subscription.ShopSubscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM shop_subscriptions WHERE shop_id = $1`

	sub, err := scanSubscription(r.db.Pool().QueryRow(ctx, query, shopID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return sub, nil
}

// Create inserts the shop's subscription row; a shop that has one already
// yields ErrConflict.
func (r *ShopSubscriptionRepository) Create(ctx context.Context, sub *subscription.ShopSubscription) error {
	query := `
		INSERT INTO shop_subscriptions (
			shop_id, plan_id, status, billing_cycle, start_date, end_date, auto_renew
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool().QueryRow(
		ctx, query,
		sub.ShopID, sub.PlanID, sub.Status, sub.BillingCycle, sub.StartDate, sub.EndDate, sub.AutoRenew,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	if isUniqueViolation(err) {
		return xerrors.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (r *ShopSubscriptionRepository) FindPayment(ctx context.Context, id int64) (*subscription.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM subscription_payments p
		JOIN shop_subscriptions s ON s.id = p.subscription_id
		WHERE p.id = $1
	`

	p, err := scanPayment(r.db.Pool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	return p, nil
}

// OpenCheckout points the shop's row at the requested plan and cycle (creating
// an expired placeholder when there is none) and inserts a PENDING payment,
// all in one transaction.
func (r *ShopSubscriptionRepository) OpenCheckout(ctx context.Context, co *subscription.Checkout) error {
	upsert := `
		INSERT INTO shop_subscriptions (
			shop_id, plan_id, status, billing_cycle, start_date, end_date, auto_renew, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $5, false, $5, $5)
		ON CONFLICT (shop_id) DO UPDATE
		SET plan_id = EXCLUDED.plan_id, billing_cycle = EXCLUDED.billing_cycle, updated_at = EXCLUDED.updated_at
		RETURNING ` + subscriptionColumns

	insertPayment := `
		INSERT INTO subscription_payments (
			subscription_id, plan_id, billing_cycle, amount, transaction_id, payment_method, phone_number,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id
	`

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		sub, err := scanSubscription(tx.QueryRow(ctx, upsert, co.ShopID, co.PlanID, subscription.StatusExpired, co.Cycle, co.Now))
		if err != nil {
			return fmt.Errorf("failed to upsert subscription: %w", err)
		}

		p := co.Payment
		err = tx.QueryRow(
			ctx, insertPayment,
			sub.ID, p.PlanID, p.Cycle, p.Amount, p.Reference, p.PaymentMethod, p.PhoneNumber,
			subscription.PaymentPending, co.Now,
		).Scan(&p.ID)
		if isUniqueViolation(err) {
			return xerrors.ErrConflict
		}
		if err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		p.SubscriptionID = sub.ID
		p.ShopID = sub.ShopID
		p.Status = subscription.PaymentPending
		p.CreatedAt, p.UpdatedAt = co.Now, co.Now
		co.Subscription = sub
		return nil
	})
}

// FailPayment moves a PENDING payment to FAILED. transitioned is false when
// the payment had already settled; p is then its current state.
func (r *ShopSubscriptionRepository) FailPayment(ctx context.Context, paymentID int64, now time.Time) (*subscription.Payment, bool, error) {
	query := `
		UPDATE subscription_payments p
		SET status = $2, updated_at = $3
		FROM shop_subscriptions s
		WHERE p.id = $1 AND p.status = $4 AND s.id = p.subscription_id
		RETURNING ` + paymentColumns

	p, err := scanPayment(r.db.Pool().QueryRow(ctx, query, paymentID, subscription.PaymentFailed, now, subscription.PaymentPending))
	if errors.Is(err, pgx.ErrNoRows) {
		current, findErr := r.FindPayment(ctx, paymentID)
		if findErr != nil {
			return nil, false, findErr
		}
		return current, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to mark payment failed: %w", err)
	}
	return p, true, nil
}

// CompletePayment settles a PENDING payment and extends the subscription by
// the cycle that payment bought, switching the row to the payment's plan.
// Both rows are locked first, so concurrent confirmations of one payment
// extend the subscription once.
func (r *ShopSubscriptionRepository) CompletePayment(ctx context.Context, paymentID int64, now time.Time) (*subscription.Payment, *subscription.ShopSubscription, bool, error) {
	lockPayment := `
		SELECT ` + paymentColumns + `
		FROM subscription_payments p
		JOIN shop_subscriptions s ON s.id = p.subscription_id
		WHERE p.id = $1
		FOR UPDATE OF p, s
	`
	lockSubscription := `SELECT ` + subscriptionColumns + ` FROM shop_subscriptions WHERE id = $1`
	completePayment := `UPDATE subscription_payments SET status = $2, updated_at = $3 WHERE id = $1`
	extend := `
		UPDATE shop_subscriptions
		SET status = $2, end_date = $3, plan_id = $4, billing_cycle = $5, updated_at = $6
		WHERE id = $1
	`

	var (
		payment      *subscription.Payment
		sub          *subscription.ShopSubscription
		transitioned bool
	)

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		payment, err = scanPayment(tx.QueryRow(ctx, lockPayment, paymentID))
		if errors.Is(err, pgx.ErrNoRows) {
			return xerrors.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock payment: %w", err)
		}

		sub, err = scanSubscription(tx.QueryRow(ctx, lockSubscription, payment.SubscriptionID))
		if err != nil {
			return fmt.Errorf("failed to load subscription: %w", err)
		}

		if payment.Status != subscription.PaymentPending {
			return nil
		}

		if _, err := tx.Exec(ctx, completePayment, payment.ID, subscription.PaymentCompleted, now); err != nil {
			return fmt.Errorf("failed to complete payment: %w", err)
		}
		sub.ApplyPayment(payment, now)
		if _, err := tx.Exec(ctx, extend, sub.ID, sub.Status, sub.EndDate, sub.PlanID, sub.BillingCycle, now); err != nil {
			return fmt.Errorf("failed to extend subscription: %w", err)
		}

		payment.Status = subscription.PaymentCompleted
		payment.UpdatedAt = now
		transitioned = true
		return nil
	})
	if err != nil {
		return nil, nil, false, err
	}
	return payment, sub, transitioned, nil
}

func scanSubscription(row pgx.Row) (*subscription.ShopSubscription, error) {
	var sub subscription.ShopSubscription
	err := row.Scan(
		&sub.ID, &sub.ShopID, &sub.PlanID, &sub.Status, &sub.BillingCycle,
		&sub.StartDate, &sub.EndDate, &sub.AutoRenew, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func scanPayment(row pgx.Row) (*subscription.Payment, error) {
	var p subscription.Payment
	err := row.Scan(
		&p.ID, &p.SubscriptionID, &p.ShopID, &p.PlanID, &p.Cycle, &p.Amount, &p.Reference, &p.PaymentMethod,
		&p.PhoneNumber, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
