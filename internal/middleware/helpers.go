// internal/middleware/helpers.go
package middleware

import (
	"duka-service/internal/domain/shop"
	xerrors "duka-service/internal/pkg/errors"
	"duka-service/internal/pkg/response"
	"duka-service/internal/service/entitlement"

	"github.com/gin-gonic/gin"
)

func GetActor(c *gin.Context) (shop.Actor, bool) {
	v, exists := c.Get(ctxActor)
	if !exists {
		return nil, false
	}
	actor, ok := v.(shop.Actor)
	return actor, ok
}

// MustGetActor gets the actor from context or panics
func MustGetActor(c *gin.Context) shop.Actor {
	actor, ok := GetActor(c)
	if !ok {
		panic("actor not found in context")
	}
	return actor
}

func GetUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// GetTenant returns the tenant resolved earlier in the chain.
func GetTenant(c *gin.Context) (entitlement.Tenant, bool) {
	v, exists := c.Get(ctxTenant)
	if !exists {
		return entitlement.Tenant{}, false
	}
	t, ok := v.(entitlement.Tenant)
	return t, ok
}

// GetShopID returns the caller's shop id, if one was resolved.
func GetShopID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(ctxShopID)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id != 0
}

// ShopIDOrAbort writes the no-shop error when the caller has no shop.
func ShopIDOrAbort(c *gin.Context) (int64, bool) {
	shopID, ok := GetShopID(c)
	if !ok {
		response.FromError(c, xerrors.ErrNoShop, "No shop is associated with this account.")
		return 0, false
	}
	return shopID, true
}

func GetJTI(c *gin.Context) string {
	v, _ := c.Get(ctxJTI)
	jti, _ := v.(string)
	return jti
}
