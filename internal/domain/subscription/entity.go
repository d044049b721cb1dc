// internal/domain/subscription/entity.go
package subscription

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type BillingCycle string

const (
	CycleDaily      BillingCycle = "DAILY"
	CycleWeekly     BillingCycle = "WEEKLY"
	CycleMonthly    BillingCycle = "MONTHLY"
	CycleQuarterly  BillingCycle = "QUARTERLY"
	CycleBiannually BillingCycle = "BIANNUALLY"
	CycleYearly     BillingCycle = "YEARLY"
)

// Cycles lists billing cycles from shortest to longest.
var Cycles = []BillingCycle{CycleDaily, CycleWeekly, CycleMonthly, CycleQuarterly, CycleBiannually, CycleYearly}

// ParseBillingCycle is case-insensitive.
func ParseBillingCycle(s string) (BillingCycle, bool) {
	c := BillingCycle(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Cycles {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Days is the length of one paid period. Unknown cycles count as a month.
func (c BillingCycle) Days() int {
	switch c {
	case CycleDaily:
		return 1
	case CycleWeekly:
		return 7
	case CycleQuarterly:
		return 90
	case CycleBiannually:
		return 180
	case CycleYearly:
		return 365
	default:
		return 30
	}
}

func (c BillingCycle) Label() string {
	switch c {
	case CycleDaily:
		return "Day"
	case CycleWeekly:
		return "Week"
	case CycleMonthly:
		return "Month"
	case CycleQuarterly:
		return "3 Months"
	case CycleBiannually:
		return "6 Months"
	case CycleYearly:
		return "Year"
	}
	return string(c)
}

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusTrial     Status = "TRIAL"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

const (
	TrialPlanSlug = "trial"
	TrialPlanName = "Free Trial"
	FreeTierName  = "Free Tier"
	TrialDays     = 7
)

type Plan struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Slug        string `json:"slug" db:"slug"`
	Description string `json:"description,omitempty" db:"description"`

	// Pricing, zero means the cycle is not offered
	PriceDaily      float64 `json:"price_daily" db:"price_daily"`
	PriceWeekly     float64 `json:"price_weekly" db:"price_weekly"`
	PriceMonthly    float64 `json:"price_monthly" db:"price_monthly"`
	PriceQuarterly  float64 `json:"price_quarterly" db:"price_quarterly"`
	PriceBiannually float64 `json:"price_biannually" db:"price_biannually"`
	PriceYearly     float64 `json:"price_yearly" db:"price_yearly"`

	// Limits
	MaxShops    int `json:"max_shops" db:"max_shops"`
	MaxUsers    int `json:"max_users" db:"max_users"`
	MaxProducts int `json:"max_products" db:"max_products"`

	Features map[string]interface{} `json:"features,omitempty" db:"features"`
	IsActive bool                   `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PriceFor returns the plan price for one cycle, zero when unavailable.
func (p *Plan) PriceFor(c BillingCycle) float64 {
	switch c {
	case CycleDaily:
		return p.PriceDaily
	case CycleWeekly:
		return p.PriceWeekly
	case CycleMonthly:
		return p.PriceMonthly
	case CycleQuarterly:
		return p.PriceQuarterly
	case CycleBiannually:
		return p.PriceBiannually
	case CycleYearly:
		return p.PriceYearly
	}
	return 0
}

// PrimaryCycle is the shortest cycle with a price. ok is false when the plan
// has no priced cycle, in which case MONTHLY is returned.
func (p *Plan) PrimaryCycle() (BillingCycle, bool) {
	for _, c := range Cycles {
		if p.PriceFor(c) > 0 {
			return c, true
		}
	}
	return CycleMonthly, false
}

// CycleRank orders plans for listing: 1 for daily through 6 for yearly, 7 when free.
func (p *Plan) CycleRank() int {
	for i, c := range Cycles {
		if p.PriceFor(c) > 0 {
			return i + 1
		}
	}
	return len(Cycles) + 1
}

func (p *Plan) IsTrial() bool {
	return p.Slug == TrialPlanSlug || strings.Contains(strings.ToLower(p.Name), "trial")
}

var displayPrinter = message.NewPrinter(language.English)

// DisplayPrice renders e.g. "1,000 / Day".
func (p *Plan) DisplayPrice() string {
	c, _ := p.PrimaryCycle()
	return displayPrinter.Sprintf("%d / %s", int64(math.Round(p.PriceFor(c))), c.Label())
}

// ShopSubscription is the single ledger row a shop has.
type ShopSubscription struct {
	ID           int64        `json:"id" db:"id"`
	ShopID       int64        `json:"shop_id" db:"shop_id"`
	PlanID       int64        `json:"plan_id" db:"plan_id"`
	Status       Status       `json:"status" db:"status"`
	BillingCycle BillingCycle `json:"billing_cycle" db:"billing_cycle"`
	StartDate    time.Time    `json:"start_date" db:"start_date"`
	EndDate      time.Time    `json:"end_date" db:"end_date"`
	AutoRenew    bool         `json:"auto_renew" db:"auto_renew"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// IsValid holds only for ACTIVE or TRIAL rows whose end date is still ahead.
func (s *ShopSubscription) IsValid(now time.Time) bool {
	if s.Status != StatusActive && s.Status != StatusTrial {
		return false
	}
	return s.EndDate.After(now)
}

// ExtendedEndDate is the end date after paying for one more cycle. Early
// renewals stack on the old end date, late ones start from now.
func ExtendedEndDate(oldEnd, now time.Time, cycle BillingCycle) time.Time {
	base := oldEnd
	if base.Before(now) {
		base = now
	}
	return base.AddDate(0, 0, cycle.Days())
}

// ApplyPayment activates the row for the plan and cycle the payment bought.
// Payments recorded without a plan keep the row's own plan and cycle.
func (s *ShopSubscription) ApplyPayment(p *Payment, now time.Time) {
	if p.PlanID != 0 {
		s.PlanID = p.PlanID
	}
	if p.Cycle != "" {
		s.BillingCycle = p.Cycle
	}
	s.EndDate = ExtendedEndDate(s.EndDate, now, s.BillingCycle)
	s.Status = StatusActive
	s.UpdatedAt = now
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentCompleted || s == PaymentFailed
}

const PaymentMethodClickPesa = "CLICKPESA"

type Payment struct {
	ID             int64         `json:"id" db:"id"`
	SubscriptionID int64         `json:"subscription_id" db:"subscription_id"`
	ShopID         int64         `json:"shop_id" db:"shop_id"` // joined from the subscription
	PlanID         int64         `json:"plan_id" db:"plan_id"`
	Cycle          BillingCycle  `json:"billing_cycle" db:"billing_cycle"`
	Amount         float64       `json:"amount" db:"amount"`
	Reference      string        `json:"transaction_id" db:"transaction_id"`
	PaymentMethod  string        `json:"payment_method" db:"payment_method"`
	PhoneNumber    string        `json:"phone_number" db:"phone_number"`
	Status         PaymentStatus `json:"status" db:"status"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// Checkout is one payment attempt: the shop's ledger row is pointed at the
// requested plan and cycle and a PENDING payment is opened against it. The
// payment keeps its own plan and cycle, so a later checkout cannot change
// what an earlier one buys.
type Checkout struct {
	ShopID  int64
	PlanID  int64
	Cycle   BillingCycle
	Now     time.Time
	Payment *Payment

	// Set by the store.
	Subscription *ShopSubscription
}
