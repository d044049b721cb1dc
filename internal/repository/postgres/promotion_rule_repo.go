// internal/repository/postgres/promotion_rule_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"duka-service/internal/domain/promotion"
	xerrors "duka-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const ruleColumns = `id, shop_id, name, discount_percent, start_time, end_time,
		       days_of_week, product_ids, category_ids, is_active, created_at, updated_at`

type PromotionRuleRepository struct {
	db Pool
}

func NewPromotionRuleRepository(db Pool) *PromotionRuleRepository {
	return &PromotionRuleRepository{db: db}
}

func (r *PromotionRuleRepository) Create(ctx context.Context, rule *promotion.Rule) error {
	query := `
		INSERT INTO promotion_rules (
			shop_id, name, discount_percent, start_time, end_time,
			days_of_week, product_ids, category_ids, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		rule.ShopID, rule.Name, rule.DiscountPercent, pgTime(rule.StartTime), pgTime(rule.EndTime),
		rule.DaysOfWeek, rule.ProductIDs, rule.CategoryIDs, rule.IsActive,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create promotion rule: %w", err)
	}
	return nil
}

func (r *PromotionRuleRepository) FindByID(ctx context.Context, shopID, id int64) (*promotion.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM promotion_rules WHERE id = $1 AND shop_id = $2`

	rule, err := scanRule(r.db.QueryRow(ctx, query, id, shopID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find promotion rule: %w", err)
	}
	return rule, nil
}

func (r *PromotionRuleRepository) ListByShop(ctx context.Context, shopID int64) ([]promotion.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM promotion_rules WHERE shop_id = $1 ORDER BY id`
	return r.list(ctx, query, shopID)
}

// ListActiveAt returns the shop's active rules whose window contains tod,
// ordered by id so ties resolve to the oldest rule.
func (r *PromotionRuleRepository) ListActiveAt(ctx context.Context, shopID int64, tod promotion.TimeOfDay) ([]promotion.Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM promotion_rules
		WHERE shop_id = $1 AND is_active AND start_time <= $2 AND end_time >= $2
		ORDER BY id
	`
	return r.list(ctx, query, shopID, pgTime(tod))
}

func (r *PromotionRuleRepository) SetActive(ctx context.Context, shopID, id int64, active bool) error {
	query := `UPDATE promotion_rules SET is_active = $1, updated_at = $2 WHERE id = $3 AND shop_id = $4`

	result, err := r.db.Exec(ctx, query, active, time.Now(), id, shopID)
	if err != nil {
		return fmt.Errorf("failed to update promotion rule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *PromotionRuleRepository) list(ctx context.Context, query string, args ...any) ([]promotion.Rule, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list promotion rules: %w", err)
	}
	defer rows.Close()

	var rules []promotion.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan promotion rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate promotion rules: %w", err)
	}
	return rules, nil
}

func scanRule(row pgx.Row) (*promotion.Rule, error) {
	var rule promotion.Rule
	var start, end pgtype.Time

	err := row.Scan(
		&rule.ID, &rule.ShopID, &rule.Name, &rule.DiscountPercent, &start, &end,
		&rule.DaysOfWeek, &rule.ProductIDs, &rule.CategoryIDs, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rule.StartTime = promotion.TimeOfDay(start.Microseconds)
	rule.EndTime = promotion.TimeOfDay(end.Microseconds)
	return &rule, nil
}

// pgTime maps a time of day onto a postgres TIME value (microsecond precision).
func pgTime(t promotion.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t), Valid: true}
}
