// Package policy is the authorization and content-visibility model. Every function
// here is pure: decisions depend only on the arguments.
package policy

import (
	"time"

	"github.com/qalam-news/core/internal/models"
)

// Claims is the decoded identity carried by an access token.
type Claims struct {
	UserID      string              `json:"userId"`
	Role        models.Role         `json:"role"`
	Permissions []models.Permission `json:"permissions"`
	IssuedAt    time.Time           `json:"issuedAt"`
	ExpiresAt   time.Time           `json:"expiresAt"`
	TokenID     string              `json:"-"`
}

// IsAdmin reports whether the claims carry the admin role.
func (c *Claims) IsAdmin() bool {
	return c != nil && c.Role == models.RoleAdmin
}

// Has reports whether the exact permission was granted.
func (c *Claims) Has(p models.Permission) bool {
	if c == nil {
		return false
	}
	for _, granted := range c.Permissions {
		if granted == p {
			return true
		}
	}
	return false
}

// IsSuperuser reports whether the claims pass authorization rules 1 or 2:
// the admin role or the "all" permission.
func (c *Claims) IsSuperuser() bool {
	return c.IsAdmin() || c.Has(models.PermAll)
}
