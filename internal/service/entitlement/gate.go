// internal/service/entitlement/gate.go
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"duka-service/internal/domain/shop"
	"duka-service/internal/domain/subscription"
	"duka-service/internal/metrics"
	"duka-service/internal/pkg/clock"
	xerrors "duka-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type Reason string

const (
	ReasonUnauthenticated   Reason = "unauthenticated"
	ReasonSuperuser         Reason = "superuser"
	ReasonAllowListed       Reason = "allow_listed"
	ReasonNoShop            Reason = "no_shop"
	ReasonSubscriptionValid Reason = "subscription_valid"
	ReasonTrial             Reason = "trial"
	ReasonExpired           Reason = "expired"
	ReasonEvaluationError   Reason = "evaluation_error"
)

// State is the tenant state the decision was derived from.
type State string

const (
	StateUnknown           State = "UNKNOWN"
	StateSuperuserBypass   State = "SUPERUSER_BYPASS"
	StateNoShop            State = "NO_SHOP"
	StateDBValid           State = "DB_VALID"
	StateRegistrationTrial State = "REGISTRATION_TRIAL"
	StateExpired           State = "EXPIRED"
)

// bannerDays is how close to the end date the renewal banner appears.
const bannerDays = 7

const ExpiredMessage = "Your subscription has expired. Please choose a plan to continue using the shop."

type Decision struct {
	Allowed    bool   `json:"allowed"`
	Reason     Reason `json:"reason"`
	State      State  `json:"state"`
	ShopID     int64  `json:"shop_id,omitempty"`
	RedirectTo string `json:"redirect_to,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Tenant is the result of resolving an actor's shop once per request.
type Tenant struct {
	ShopID int64
	Found  bool
	Err    error
}

type ShopStore interface {
	shop.Finder
	FindByID(ctx context.Context, id int64) (*shop.Shop, error)
}

type SubscriptionReader interface {
	FindByShop(ctx context.Context, shopID int64) (*subscription.ShopSubscription, error)
}

type PlanReader interface {
	FindByID(ctx context.Context, id int64) (*subscription.Plan, error)
}

type Gate struct {
	shops   ShopStore
	subs    SubscriptionReader
	plans   PlanReader
	policy  Policy
	clock   clock.Clock
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewGate(
	shops ShopStore,
	subs SubscriptionReader,
	plans PlanReader,
	policy Policy,
	clk clock.Clock,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Gate {
	return &Gate{
		shops:   shops,
		subs:    subs,
		plans:   plans,
		policy:  policy.withDefaults(),
		clock:   clk,
		metrics: m,
		logger:  logger,
	}
}

func (g *Gate) Policy() Policy {
	return g.policy
}

// ResolveTenant finds the actor's shop. Lookup failures, including panics,
// are reported in Tenant.Err instead of being raised.
func (g *Gate) ResolveTenant(ctx context.Context, actor shop.Actor) (t Tenant) {
	if actor == nil {
		return Tenant{}
	}
	defer func() {
		if r := recover(); r != nil {
			t = Tenant{Err: fmt.Errorf("tenant resolution panicked: %v", r)}
		}
	}()

	shopID, found, err := actor.ResolveTenant(ctx, g.shops)
	return Tenant{ShopID: shopID, Found: found, Err: err}
}

// CheckAccess decides whether actor may reach path. The first matching rule wins:
// superuser, allow-listed path, no shop, valid ledger row, registration trial,
// otherwise expired.
func (g *Gate) CheckAccess(ctx context.Context, actor shop.Actor, tenant Tenant, path string) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			d = g.fault(tenant, fmt.Errorf("entitlement check panicked: %v", r))
		}
		g.metrics.ObserveGateDecision(d.Allowed, string(d.Reason))
	}()

	if actor == nil {
		return Decision{Allowed: true, Reason: ReasonUnauthenticated, State: StateUnknown}
	}
	if actor.Role() == shop.RoleSuperAdmin {
		return Decision{Allowed: true, Reason: ReasonSuperuser, State: StateSuperuserBypass}
	}
	if g.policy.IsAllowListed(path) {
		return Decision{Allowed: true, Reason: ReasonAllowListed, State: StateUnknown, ShopID: tenant.ShopID}
	}
	if tenant.Err != nil {
		return g.fault(tenant, tenant.Err)
	}
	if !tenant.Found {
		if g.policy.AllowWhenNoShop {
			return Decision{Allowed: true, Reason: ReasonNoShop, State: StateNoShop}
		}
		return Decision{
			Allowed:    false,
			Reason:     ReasonNoShop,
			State:      StateNoShop,
			RedirectTo: g.policy.PricingPath,
			Message:    "No shop is associated with this account.",
		}
	}

	now := g.clock.Now()

	sub, err := g.subs.FindByShop(ctx, tenant.ShopID)
	switch {
	case err == nil:
		if sub.IsValid(now) {
			return Decision{Allowed: true, Reason: ReasonSubscriptionValid, State: StateDBValid, ShopID: tenant.ShopID}
		}
	case errors.Is(err, xerrors.ErrNotFound):
	default:
		return g.fault(tenant, fmt.Errorf("failed to load subscription: %w", err))
	}

	s, err := g.shops.FindByID(ctx, tenant.ShopID)
	if err != nil {
		return g.fault(tenant, fmt.Errorf("failed to load shop: %w", err))
	}
	if s.DaysSinceCreated(now) < g.policy.TrialDays {
		return Decision{Allowed: true, Reason: ReasonTrial, State: StateRegistrationTrial, ShopID: tenant.ShopID}
	}

	return Decision{
		Allowed:    false,
		Reason:     ReasonExpired,
		State:      StateExpired,
		ShopID:     tenant.ShopID,
		RedirectTo: g.policy.PricingPath,
		Message:    ExpiredMessage,
	}
}

func (g *Gate) fault(tenant Tenant, err error) Decision {
	g.logger.Error("entitlement evaluation failed",
		zap.Int64("shop_id", tenant.ShopID),
		zap.Bool("fail_open", g.policy.FailOpenOnError),
		zap.Error(err),
	)
	if g.policy.FailOpenOnError {
		return Decision{Allowed: true, Reason: ReasonEvaluationError, State: StateUnknown, ShopID: tenant.ShopID}
	}
	return Decision{
		Allowed:    false,
		Reason:     ReasonEvaluationError,
		State:      StateUnknown,
		ShopID:     tenant.ShopID,
		RedirectTo: g.policy.PricingPath,
		Message:    "We could not verify your subscription. Please try again.",
	}
}

// Status computes the dashboard view of the tenant's subscription. Employees
// never get the renewal banner.
func (g *Gate) Status(ctx context.Context, actor shop.Actor, tenant Tenant) (*subscription.StatusView, error) {
	view := &subscription.StatusView{
		Status:   subscription.StatusExpired,
		PlanName: subscription.FreeTierName,
	}
	if tenant.Err != nil {
		return nil, tenant.Err
	}

	if tenant.Found {
		view.ShopID = tenant.ShopID
		if err := g.fillStatus(ctx, tenant.ShopID, view); err != nil {
			return nil, err
		}
	}

	if actor != nil && actor.Role() == shop.RoleEmployee {
		view.ShowBanner = false
	} else {
		view.ShowBanner = view.DaysLeft <= bannerDays ||
			view.Status == subscription.StatusExpired ||
			!view.HasSubscription
	}
	return view, nil
}

func (g *Gate) fillStatus(ctx context.Context, shopID int64, view *subscription.StatusView) error {
	now := g.clock.Now()

	sub, err := g.subs.FindByShop(ctx, shopID)
	if err != nil && !errors.Is(err, xerrors.ErrNotFound) {
		return fmt.Errorf("failed to load subscription: %w", err)
	}

	if sub != nil {
		view.HasSubscription = true
		view.Status = sub.Status
		end := sub.EndDate
		view.EndDate = &end

		if plan, err := g.plans.FindByID(ctx, sub.PlanID); err == nil {
			view.PlanName = plan.Name
		} else {
			g.logger.Warn("failed to load plan for status view", zap.Int64("plan_id", sub.PlanID), zap.Error(err))
			view.PlanName = ""
		}

		if !end.After(now) {
			view.DaysLeft = 0
			view.Status = subscription.StatusExpired
			return nil
		}
		view.DaysLeft = max(0, wholeDays(end.Sub(now)))
		if view.Status != subscription.StatusActive && view.Status != subscription.StatusTrial {
			view.Status = subscription.StatusExpired
		}
		return nil
	}

	s, err := g.shops.FindByID(ctx, shopID)
	if err != nil {
		return fmt.Errorf("failed to load shop: %w", err)
	}
	days := s.DaysSinceCreated(now)
	if days < g.policy.TrialDays {
		view.HasSubscription = true
		view.Status = subscription.StatusTrial
		view.DaysLeft = g.policy.TrialDays - days
		view.PlanName = subscription.TrialPlanName
	}
	return nil
}

// IsAllowListed matches path against the configured prefixes.
func (p Policy) IsAllowListed(path string) bool {
	for _, prefix := range p.AllowPaths {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func wholeDays(d time.Duration) int {
	return int(d / (24 * time.Hour))
}
