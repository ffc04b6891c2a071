package auth

import (
	"github.com/qalam-news/core/internal/models"
	jwtpkg "github.com/qalam-news/core/internal/pkg/jwt"
	"github.com/qalam-news/core/internal/policy"
)

func claimsFromToken(c *jwtpkg.Claims) *policy.Claims {
	perms := make([]models.Permission, len(c.Permissions))
	for i, p := range c.Permissions {
		perms[i] = models.Permission(p)
	}
	return &policy.Claims{
		UserID:      c.UserID,
		Role:        models.Role(c.Role),
		Permissions: perms,
		IssuedAt:    c.IssuedAtTime(),
		ExpiresAt:   c.ExpiresAtTime(),
		TokenID:     c.ID,
	}
}
