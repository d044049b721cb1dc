package pricing

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"testing"
	"time"

	"duka-service/internal/domain/promotion"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRules struct {
	rules []promotion.Rule
	err   error
}

func (s *stubRules) ListActiveAt(_ context.Context, shopID int64, tod promotion.TimeOfDay) ([]promotion.Rule, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []promotion.Rule
	for _, r := range s.rules {
		if r.ShopID == shopID && r.IsActive && r.InWindow(tod) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Monday 19 October 2026, 14:30 local.
var monday = time.Date(2026, time.October, 19, 14, 30, 0, 0, time.UTC)

func everyDay() pq.Int64Array { return pq.Int64Array{0, 1, 2, 3, 4, 5, 6} }

func rule(id int64, percent float64, products ...int64) promotion.Rule {
	return promotion.Rule{
		ID:              id,
		ShopID:          1,
		Name:            "happy hour",
		DiscountPercent: percent,
		StartTime:       promotion.NewTimeOfDay(14, 0, 0),
		EndTime:         promotion.NewTimeOfDay(17, 0, 0),
		DaysOfWeek:      everyDay(),
		ProductIDs:      pq.Int64Array(products),
		IsActive:        true,
	}
}

func product() *promotion.Product {
	return &promotion.Product{
		ID:           10,
		ShopID:       1,
		Name:         "Soda",
		SellingPrice: 1000,
		CategoryID:   sql.NullInt64{Int64: 3, Valid: true},
	}
}

func TestComputePrice_HalfOffScenario(t *testing.T) {
	engine := NewEngine(&stubRules{rules: []promotion.Rule{rule(1, 50, 10)}}, nil, zap.NewNop())

	q := engine.ComputePrice(context.Background(), product(), 1, monday)

	assert.Equal(t, 500.0, q.FinalPrice)
	assert.Equal(t, 1000.0, q.OriginalPrice)
	assert.True(t, q.DiscountApplied)
	assert.Equal(t, int64(1), q.RuleID)
}

func TestEvaluate(t *testing.T) {
	categoryRule := rule(5, 30)
	categoryRule.CategoryIDs = pq.Int64Array{3}

	otherCategory := rule(6, 40)
	otherCategory.CategoryIDs = pq.Int64Array{99}

	weekendOnly := rule(7, 60, 10)
	weekendOnly.DaysOfWeek = pq.Int64Array{5, 6}

	inactive := rule(8, 70, 10)
	inactive.IsActive = false

	endsAtInstant := rule(9, 15, 10)
	endsAtInstant.EndTime = promotion.NewTimeOfDay(14, 30, 0)

	startsAtInstant := rule(11, 12, 10)
	startsAtInstant.StartTime = promotion.NewTimeOfDay(14, 30, 0)

	endedBefore := rule(12, 80, 10)
	endedBefore.EndTime = promotion.NewTimeOfDay(14, 29, 59)

	tests := []struct {
		name        string
		rules       []promotion.Rule
		wantPrice   float64
		wantApplied bool
		wantRule    int64
	}{
		{name: "no rules", rules: nil, wantPrice: 1000},
		{name: "best of overlapping rules", rules: []promotion.Rule{rule(1, 10, 10), rule(2, 25, 10), rule(3, 20, 10)}, wantPrice: 750, wantApplied: true, wantRule: 2},
		{name: "targets another product", rules: []promotion.Rule{rule(1, 50, 11)}, wantPrice: 1000},
		{name: "category match", rules: []promotion.Rule{categoryRule}, wantPrice: 700, wantApplied: true, wantRule: 5},
		{name: "other category ignored", rules: []promotion.Rule{otherCategory}, wantPrice: 1000},
		{name: "weekday excluded", rules: []promotion.Rule{weekendOnly}, wantPrice: 1000},
		{name: "inactive ignored", rules: []promotion.Rule{inactive}, wantPrice: 1000},
		{name: "window end inclusive", rules: []promotion.Rule{endsAtInstant}, wantPrice: 850, wantApplied: true, wantRule: 9},
		{name: "window start inclusive", rules: []promotion.Rule{startsAtInstant}, wantPrice: 880, wantApplied: true, wantRule: 11},
		{name: "window already closed", rules: []promotion.Rule{endedBefore}, wantPrice: 1000},
		{name: "tie keeps first found", rules: []promotion.Rule{rule(4, 20, 10), rule(3, 20, 10)}, wantPrice: 800, wantApplied: true, wantRule: 4},
		{name: "excluded higher rule does not shadow lower", rules: []promotion.Rule{weekendOnly, rule(2, 10, 10)}, wantPrice: 900, wantApplied: true, wantRule: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Evaluate(tt.rules, product(), monday)
			assert.InDelta(t, tt.wantPrice, q.FinalPrice, 1e-9)
			assert.Equal(t, 1000.0, q.OriginalPrice)
			assert.Equal(t, tt.wantApplied, q.DiscountApplied)
			assert.Equal(t, tt.wantRule, q.RuleID)
		})
	}
}

func TestEvaluate_ProductWithoutCategory(t *testing.T) {
	r := rule(1, 50)
	r.CategoryIDs = pq.Int64Array{0}

	p := product()
	p.CategoryID = sql.NullInt64{}

	q := Evaluate([]promotion.Rule{r}, p, monday)
	assert.False(t, q.DiscountApplied)
	assert.Equal(t, p.SellingPrice, q.FinalPrice)
}

func TestComputePrice_RuleSourceErrorMeansNoDiscount(t *testing.T) {
	engine := NewEngine(&stubRules{err: errors.New("db down")}, nil, zap.NewNop())

	q := engine.ComputePrice(context.Background(), product(), 1, monday)

	assert.False(t, q.DiscountApplied)
	assert.Equal(t, 1000.0, q.FinalPrice)
}

func TestComputePrice_OtherShopRulesIgnored(t *testing.T) {
	r := rule(1, 50, 10)
	r.ShopID = 2
	engine := NewEngine(&stubRules{rules: []promotion.Rule{r}}, nil, zap.NewNop())

	q := engine.ComputePrice(context.Background(), product(), 1, monday)
	assert.False(t, q.DiscountApplied)
}

func TestEvaluate_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		var rules []promotion.Rule
		n := rng.Intn(6)
		for j := 0; j < n; j++ {
			start := promotion.NewTimeOfDay(rng.Intn(24), rng.Intn(60), 0)
			end := start + promotion.TimeOfDay(rng.Int63n(int64(6*time.Hour/time.Microsecond)))
			r := promotion.Rule{
				ID:              int64(j + 1),
				ShopID:          1,
				DiscountPercent: float64(rng.Intn(99) + 1),
				StartTime:       start,
				EndTime:         end,
				DaysOfWeek:      pq.Int64Array{int64(rng.Intn(7)), int64(rng.Intn(7))},
				ProductIDs:      pq.Int64Array{int64(rng.Intn(3) + 9)},
				IsActive:        rng.Intn(4) > 0,
			}
			rules = append(rules, r)
		}

		p := product()
		p.SellingPrice = float64(rng.Intn(100000))
		at := monday.Add(time.Duration(rng.Intn(7*24*60)) * time.Minute)

		q := Evaluate(rules, p, at)
		require.LessOrEqual(t, q.FinalPrice, q.OriginalPrice)
		if !q.DiscountApplied {
			require.Equal(t, q.OriginalPrice, q.FinalPrice)
		}

		// The chosen percentage is the maximum over applicable rules.
		maxPercent := 0.0
		for _, r := range rules {
			if r.IsActive && r.InWindow(promotion.TimeOfDayOf(at)) && r.ActiveOn(promotion.WeekdayOf(at)) && r.AppliesTo(p) && r.DiscountPercent > maxPercent {
				maxPercent = r.DiscountPercent
			}
		}
		require.Equal(t, maxPercent, q.DiscountPercent)
	}
}
