// internal/middleware/subscription_gate.go
package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"duka-service/internal/domain/shop"
	"duka-service/internal/pkg/response"
	"duka-service/internal/service/entitlement"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ctxTenant   = "tenant"
	ctxShopID   = "shop_id"
	ctxDecision = "entitlement"
)

type Gate interface {
	ResolveTenant(ctx context.Context, actor shop.Actor) entitlement.Tenant
	CheckAccess(ctx context.Context, actor shop.Actor, tenant entitlement.Tenant, path string) entitlement.Decision
}

type GateMiddleware struct {
	gate   Gate
	logger *zap.Logger
}

func NewGateMiddleware(gate Gate, logger *zap.Logger) *GateMiddleware {
	return &GateMiddleware{gate: gate, logger: logger}
}

// Tenant resolves the actor's shop once and stores it for the rest of the
// chain. Anonymous requests pass through untouched.
func (m *GateMiddleware) Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.resolve(c)
		c.Next()
	}
}

// Subscription enforces the entitlement decision. Browser navigations are
// redirected to the pricing page; API callers get a 402 carrying the same
// target.
func (m *GateMiddleware) Subscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.resolve(c)
		m.enforce(c)
	}
}

func (m *GateMiddleware) resolve(c *gin.Context) {
	if _, ok := GetTenant(c); ok {
		return
	}
	actor, ok := GetActor(c)
	if !ok {
		return
	}

	tenant := m.gate.ResolveTenant(c.Request.Context(), actor)
	c.Set(ctxTenant, tenant)
	if tenant.Found {
		c.Set(ctxShopID, tenant.ShopID)
	}
}

func (m *GateMiddleware) enforce(c *gin.Context) {
	actor, _ := GetActor(c)
	tenant, _ := GetTenant(c)

	d := m.gate.CheckAccess(c.Request.Context(), actor, tenant, c.Request.URL.Path)
	c.Set(ctxDecision, d)
	if d.Allowed {
		c.Next()
		return
	}

	m.logger.Info("subscription gate denied request",
		zap.Int64("shop_id", d.ShopID),
		zap.String("reason", string(d.Reason)),
		zap.String("path", c.Request.URL.Path),
	)

	if wantsHTML(c.Request) {
		target := d.RedirectTo
		if d.Message != "" {
			target += "?" + url.Values{"message": {d.Message}}.Encode()
		}
		c.Redirect(http.StatusFound, target)
		c.Abort()
		return
	}
	response.PaymentRequired(c, d.Message, d.RedirectTo)
}

// wantsHTML reports a browser page navigation as opposed to an API call.
func wantsHTML(r *http.Request) bool {
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return false
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html")
}
