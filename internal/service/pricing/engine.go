// internal/service/pricing/engine.go
package pricing

import (
	"context"
	"time"

	"duka-service/internal/domain/promotion"
	"duka-service/internal/metrics"

	"go.uber.org/zap"
)

// RuleSource returns the active rules of a shop whose window contains tod,
// ordered by rule id.
type RuleSource interface {
	ListActiveAt(ctx context.Context, shopID int64, tod promotion.TimeOfDay) ([]promotion.Rule, error)
}

type Engine struct {
	rules   RuleSource
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewEngine(rules RuleSource, m *metrics.Metrics, logger *zap.Logger) *Engine {
	return &Engine{
		rules:   rules,
		metrics: m,
		logger:  logger,
	}
}

// ComputePrice prices product at instant. It never fails: when rules cannot be
// loaded the selling price is returned undiscounted.
func (e *Engine) ComputePrice(ctx context.Context, product *promotion.Product, shopID int64, instant time.Time) promotion.Quote {
	if product == nil {
		return promotion.Quote{}
	}

	rules, err := e.rules.ListActiveAt(ctx, shopID, promotion.TimeOfDayOf(instant))
	if err != nil {
		e.logger.Warn("failed to load promotion rules, pricing without discount",
			zap.Int64("shop_id", shopID),
			zap.Int64("product_id", product.ID),
			zap.Error(err),
		)
		rules = nil
	}

	quote := Evaluate(rules, product, instant)
	e.metrics.ObserveQuote(quote.DiscountApplied)
	return quote
}

// Evaluate picks the applicable rule with the strictly greatest percentage.
// On ties the earliest rule in the slice wins.
func Evaluate(rules []promotion.Rule, product *promotion.Product, instant time.Time) promotion.Quote {
	quote := promotion.Quote{
		ProductID:     product.ID,
		OriginalPrice: product.SellingPrice,
		FinalPrice:    product.SellingPrice,
	}

	tod := promotion.TimeOfDayOf(instant)
	day := promotion.WeekdayOf(instant)

	var best *promotion.Rule
	bestPercent := 0.0
	for i := range rules {
		r := &rules[i]
		if !r.IsActive || !r.InWindow(tod) || !r.ActiveOn(day) || !r.AppliesTo(product) {
			continue
		}
		if r.DiscountPercent > bestPercent {
			best = r
			bestPercent = r.DiscountPercent
		}
	}

	if best == nil {
		return quote
	}

	discount := product.SellingPrice * (bestPercent / 100)
	quote.FinalPrice = product.SellingPrice - discount
	quote.DiscountApplied = true
	quote.DiscountPercent = bestPercent
	quote.RuleID = best.ID
	quote.RuleName = best.Name
	return quote
}
