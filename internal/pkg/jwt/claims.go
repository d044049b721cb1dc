// internal/pkg/jwt/claims.go
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleSuperAdmin = "super_admin"
	RoleOwner      = "owner"
	RoleEmployee   = "employee"

	PurposeAccess = "access"
)

// Claims identifies the caller. ShopID is only set for employees, who are
// bound to the shop that hired them.
type Claims struct {
	UserID  int64  `json:"user_id"`
	Role    string `json:"role"`
	ShopID  int64  `json:"shop_id,omitempty"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

func (c *Claims) IsSuperAdmin() bool {
	return c.Role == RoleSuperAdmin
}
