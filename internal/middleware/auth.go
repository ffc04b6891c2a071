package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/qalam-news/core/internal/pkg/response"
	"github.com/qalam-news/core/internal/policy"
)

// ContextKeyClaims holds the *policy.Claims of an authenticated request.
const ContextKeyClaims = "claims"

// TokenVerifier turns a bearer token into claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*policy.Claims, error)
}

// Auth rejects requests without a valid, unrevoked token.
func Auth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c)
			return
		}
		claims, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// OptionalAuth attaches claims when a valid token is present, but does not block the request.
func OptionalAuth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := extractToken(c); token != "" {
			if claims, err := v.Verify(c.Request.Context(), token); err == nil {
				c.Set(ContextKeyClaims, claims)
			}
		}
		c.Next()
	}
}

// RequireAction aborts with 403 unless the caller may perform action.
// It must run after Auth.
func RequireAction(action policy.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := policy.Require(CurrentClaims(c), action, ""); err != nil {
			response.Error(c, err)
			return
		}
		c.Next()
	}
}

// CurrentClaims returns the caller's claims, or nil for anonymous requests.
func CurrentClaims(c *gin.Context) *policy.Claims {
	v, ok := c.Get(ContextKeyClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*policy.Claims)
	return claims
}

// CurrentUserID extracts the authenticated user ID from context.
func CurrentUserID(c *gin.Context) string {
	if claims := CurrentClaims(c); claims != nil {
		return claims.UserID
	}
	return ""
}

// IsAuthenticated returns true if the request has a valid auth token.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentUserID(c) != ""
}

func extractToken(c *gin.Context) string {
	return NormalizeToken(c.GetHeader("Authorization"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
