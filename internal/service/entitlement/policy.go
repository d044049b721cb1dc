// internal/service/entitlement/policy.go
package entitlement

import "duka-service/internal/domain/subscription"

// Policy holds the gate's leniency switches.
//
// FailOpenOnError allows the request when the gate cannot evaluate it.
// AllowWhenNoShop allows actors that have no shop. Both are intentional
// leniencies and default to true.
type Policy struct {
	FailOpenOnError bool
	AllowWhenNoShop bool
	AllowPaths      []string
	PricingPath     string
	TrialDays       int
}

var DefaultAllowPaths = []string{
	"/pricing",
	"/api/v1/subscriptions/",
	"/api/v1/plans",
	"/api/v1/auth/",
	"/static/",
	"/media/",
}

func DefaultPolicy() Policy {
	return Policy{
		FailOpenOnError: true,
		AllowWhenNoShop: true,
		AllowPaths:      DefaultAllowPaths,
		PricingPath:     "/pricing",
		TrialDays:       subscription.TrialDays,
	}
}

func (p Policy) withDefaults() Policy {
	if p.PricingPath == "" {
		p.PricingPath = "/pricing"
	}
	if p.TrialDays <= 0 {
		p.TrialDays = subscription.TrialDays
	}
	return p
}
