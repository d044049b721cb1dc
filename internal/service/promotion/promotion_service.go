package promotion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"duka-service/internal/domain/promotion"
	"duka-service/internal/pkg/clock"
	xerrors "duka-service/internal/pkg/errors"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type RuleStore interface {
	Create(ctx context.Context, rule *promotion.Rule) error
	FindByID(ctx context.Context, shopID, id int64) (*promotion.Rule, error)
	ListByShop(ctx context.Context, shopID int64) ([]promotion.Rule, error)
	SetActive(ctx context.Context, shopID, id int64, active bool) error
}

type ProductStore interface {
	FindByID(ctx context.Context, shopID, id int64) (*promotion.Product, error)
}

// PromotionService manages a shop's happy hour rules.
type PromotionService struct {
	rules    RuleStore
	products ProductStore
	clock    clock.Clock
	logger   *zap.Logger
}

func NewPromotionService(rules RuleStore, products ProductStore, clk clock.Clock, logger *zap.Logger) *PromotionService {
	return &PromotionService{rules: rules, products: products, clock: clk, logger: logger}
}

func (s *PromotionService) CreateRule(ctx context.Context, shopID int64, req *promotion.CreateRuleRequest) (*promotion.Rule, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Rules may only target the shop's own products.
	for _, id := range req.ProductIDs {
		if _, err := s.products.FindByID(ctx, shopID, id); err != nil {
			if errors.Is(err, xerrors.ErrNotFound) {
				return nil, xerrors.New(xerrors.ErrInvalidInput, fmt.Sprintf("product %d not found", id), err)
			}
			return nil, fmt.Errorf("failed to check product %d: %w", id, err)
		}
	}

	now := s.clock.Now()
	rule := &promotion.Rule{
		ShopID:          shopID,
		Name:            strings.TrimSpace(req.Name),
		DiscountPercent: req.DiscountPercent,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DaysOfWeek:      dedupe(req.DaysOfWeek),
		ProductIDs:      dedupe(req.ProductIDs),
		CategoryIDs:     dedupe(req.CategoryIDs),
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to create promotion rule: %w", err)
	}

	s.logger.Info("promotion rule created",
		zap.Int64("shop_id", shopID),
		zap.Int64("rule_id", rule.ID),
		zap.Float64("discount_percent", rule.DiscountPercent),
		zap.String("window", rule.StartTime.String()+"-"+rule.EndTime.String()),
	)
	return rule, nil
}

func (s *PromotionService) ListRules(ctx context.Context, shopID int64) ([]promotion.Rule, error) {
	rules, err := s.rules.ListByShop(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to list promotion rules: %w", err)
	}
	if rules == nil {
		rules = []promotion.Rule{}
	}
	return rules, nil
}

func (s *PromotionService) SetActive(ctx context.Context, shopID, ruleID int64, active bool) (*promotion.Rule, error) {
	if err := s.rules.SetActive(ctx, shopID, ruleID, active); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.New(xerrors.ErrNotFound, "promotion rule not found", err)
		}
		return nil, fmt.Errorf("failed to update promotion rule: %w", err)
	}

	rule, err := s.rules.FindByID(ctx, shopID, ruleID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload promotion rule: %w", err)
	}

	s.logger.Info("promotion rule toggled",
		zap.Int64("shop_id", shopID),
		zap.Int64("rule_id", ruleID),
		zap.Bool("active", active),
	)
	return rule, nil
}

func dedupe(ids []int64) pq.Int64Array {
	seen := make(map[int64]bool, len(ids))
	out := make(pq.Int64Array, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
