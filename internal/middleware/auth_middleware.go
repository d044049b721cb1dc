// internal/middleware/auth_middleware.go
package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"duka-service/internal/domain/shop"
	"duka-service/internal/pkg/jwt"
	"duka-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ctxActor  = "actor"
	ctxUserID = "user_id"
	ctxJTI    = "jti"
)

type TokenVerifier interface {
	VerifyAccessToken(token string) (*jwt.Claims, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *zap.Logger
}

func NewAuthMiddleware(verifier TokenVerifier, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger,
	}
}

// Auth validates the bearer token and stores the actor in the context.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "missing authorization token", nil)
			return
		}

		claims, err := m.verifier.VerifyAccessToken(token)
		if err != nil {
			m.logger.Debug("rejected access token", zap.String("ip", c.ClientIP()), zap.Error(err))
			response.Unauthorized(c, "invalid or expired token")
			return
		}

		actor, err := ActorFromClaims(claims)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}

		c.Set(ctxActor, actor)
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxJTI, claims.ID)
		c.Next()
	}
}

// OptionalAuth sets the actor when a valid token is present and never aborts.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		claims, err := m.verifier.VerifyAccessToken(token)
		if err == nil {
			if actor, err := ActorFromClaims(claims); err == nil {
				c.Set(ctxActor, actor)
				c.Set(ctxUserID, claims.UserID)
				c.Set(ctxJTI, claims.ID)
			}
		}
		c.Next()
	}
}

// RequireRole must run after Auth.
func (m *AuthMiddleware) RequireRole(roles ...shop.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			response.Forbidden(c, "authentication required")
			return
		}

		for _, r := range roles {
			if actor.Role() == r {
				c.Next()
				return
			}
		}

		response.Error(c, http.StatusForbidden, "insufficient permissions", nil, gin.H{
			"required_roles": roles,
			"role":           actor.Role(),
		})
	}
}

// ActorFromClaims maps token claims onto the actor variants.
func ActorFromClaims(claims *jwt.Claims) (shop.Actor, error) {
	switch claims.Role {
	case jwt.RoleSuperAdmin:
		return shop.SuperAdmin{ID: claims.UserID}, nil
	case jwt.RoleOwner:
		return shop.Owner{ID: claims.UserID}, nil
	case jwt.RoleEmployee:
		return shop.Employee{ID: claims.UserID, ShopID: claims.ShopID}, nil
	default:
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}
}

// extractToken reads the Authorization header, falling back to ?token= for
// clients that cannot set headers.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	return c.Query("token")
}

// ExtractToken is extractToken for handlers outside the middleware chain.
func ExtractToken(c *gin.Context) string {
	return extractToken(c)
}
