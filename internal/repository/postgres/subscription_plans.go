// internal/repository/postgres/subscription_plans.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"duka-service/internal/domain/subscription"
	xerrors "duka-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
)

const planColumns = `id, name, slug, description,
		       price_daily, price_weekly, price_monthly, price_quarterly, price_biannually, price_yearly,
		       max_shops, max_users, max_products, features, is_active, created_at, updated_at`

type SubscriptionPlanRepository struct {
	db Pool
}

func NewSubscriptionPlanRepository(db Pool) *SubscriptionPlanRepository {
	return &SubscriptionPlanRepository{db: db}
}

// Create creates a new subscription plan
func (r *SubscriptionPlanRepository) Create(ctx context.Context, plan *subscription.Plan) error {
	query := `
		INSERT INTO subscription_plans (
			name, slug, description,
			price_daily, price_weekly, price_monthly, price_quarterly, price_biannually, price_yearly,
			max_shops, max_users, max_products, features, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`

	featuresJSON, err := marshalFeatures(plan.Features)
	if err != nil {
		return err
	}

	err = r.db.QueryRow(
		ctx, query,
		plan.Name, plan.Slug, plan.Description,
		plan.PriceDaily, plan.PriceWeekly, plan.PriceMonthly, plan.PriceQuarterly, plan.PriceBiannually, plan.PriceYearly,
		plan.MaxShops, plan.MaxUsers, plan.MaxProducts, featuresJSON, plan.IsActive,
	).Scan(&plan.ID, &plan.CreatedAt, &plan.UpdatedAt)
	if isUniqueViolation(err) {
		return xerrors.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create subscription plan: %w", err)
	}
	return nil
}

// FindByID retrieves a subscription plan by ID
func (r *SubscriptionPlanRepository) FindByID(ctx context.Context, id int64) (*subscription.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE id = $1`

	plan, err := scanPlan(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription plan: %w", err)
	}
	return plan, nil
}

// GetOrCreateBySlug inserts defaults unless a plan with its slug exists, then
// returns the stored plan. Concurrent callers end up with the same row.
func (r *SubscriptionPlanRepository) GetOrCreateBySlug(ctx context.Context, defaults *subscription.Plan) (*subscription.Plan, error) {
	featuresJSON, err := marshalFeatures(defaults.Features)
	if err != nil {
		return nil, err
	}

	insert := `
		INSERT INTO subscription_plans (
			name, slug, description,
			price_daily, price_weekly, price_monthly, price_quarterly, price_biannually, price_yearly,
			max_shops, max_users, max_products, features, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (slug) DO NOTHING
	`
	_, err = r.db.Exec(
		ctx, insert,
		defaults.Name, defaults.Slug, defaults.Description,
		defaults.PriceDaily, defaults.PriceWeekly, defaults.PriceMonthly, defaults.PriceQuarterly, defaults.PriceBiannually, defaults.PriceYearly,
		defaults.MaxShops, defaults.MaxUsers, defaults.MaxProducts, featuresJSON, defaults.IsActive,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure plan %q: %w", defaults.Slug, err)
	}

	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE slug = $1`
	plan, err := scanPlan(r.db.QueryRow(ctx, query, defaults.Slug))
	if err != nil {
		return nil, fmt.Errorf("failed to load plan %q: %w", defaults.Slug, err)
	}
	return plan, nil
}

// ListActive returns active plans ordered by id.
func (r *SubscriptionPlanRepository) ListActive(ctx context.Context) ([]subscription.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM subscription_plans WHERE is_active ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscription plans: %w", err)
	}
	defer rows.Close()

	var plans []subscription.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription plan: %w", err)
		}
		plans = append(plans, *plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscription plans: %w", err)
	}
	return plans, nil
}

func scanPlan(row pgx.Row) (*subscription.Plan, error) {
	var plan subscription.Plan
	var featuresJSON []byte

	err := row.Scan(
		&plan.ID, &plan.Name, &plan.Slug, &plan.Description,
		&plan.PriceDaily, &plan.PriceWeekly, &plan.PriceMonthly, &plan.PriceQuarterly, &plan.PriceBiannually, &plan.PriceYearly,
		&plan.MaxShops, &plan.MaxUsers, &plan.MaxProducts, &featuresJSON, &plan.IsActive, &plan.CreatedAt, &plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(featuresJSON) > 0 {
		if err := json.Unmarshal(featuresJSON, &plan.Features); err != nil {
			return nil, fmt.Errorf("failed to unmarshal features: %w", err)
		}
	}
	return &plan, nil
}

func marshalFeatures(features map[string]interface{}) ([]byte, error) {
	if features == nil {
		return nil, nil
	}
	b, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal features: %w", err)
	}
	return b, nil
}
