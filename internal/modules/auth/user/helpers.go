package user

import (
	"errors"
	"net/mail"
	"regexp"
	"slices"
	"strings"

	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/pkg/apperr"
	"github.com/qalam-news/core/internal/policy"
	"github.com/qalam-news/core/internal/store"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{2,31}$`)

// NormalizeUsername is the canonical stored form of a username.
func NormalizeUsername(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func validateUsername(u string) error {
	if !usernamePattern.MatchString(u) {
		return apperr.Validation("username", "must be 3-32 characters of letters, digits, '_', '.' or '-'")
	}
	return nil
}

func validateEmail(e string) error {
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e {
		return apperr.Validation("email", "is not a valid address")
	}
	return nil
}

func validatePassword(p string) error {
	if len(p) < 8 {
		return apperr.Validation("password", "must be at least 8 characters")
	}
	if len(p) > 72 {
		return apperr.Validation("password", "must be at most 72 bytes")
	}
	return nil
}

func validateGrant(role models.Role, perms []models.Permission) error {
	if !role.Valid() {
		return apperr.Validation("role", "must be one of admin, editor, viewer")
	}
	for _, p := range perms {
		if !p.Valid() {
			return apperr.Validation("permissions", "unknown permission "+string(p))
		}
	}
	return nil
}

// CheckGrant reports whether actor may give an account role and perms.
// Superusers may grant anything. Other managers never grant the admin role or
// "all", and only hand out permissions they hold themselves; permissions the
// target already has may be kept. target is nil for a new account.
func CheckGrant(actor *policy.Claims, target *models.User, role models.Role, perms []models.Permission) error {
	if err := validateGrant(role, perms); err != nil {
		return err
	}
	if actor == nil {
		return apperr.Forbidden("manage users")
	}
	if actor.IsSuperuser() {
		return nil
	}
	if role == models.RoleAdmin {
		return apperr.Forbidden("grant the admin role")
	}
	for _, p := range perms {
		if p == models.PermAll {
			return apperr.Forbidden("grant the all permission")
		}
		if target != nil && slices.Contains(target.Permissions, p) {
			continue
		}
		if !actor.Has(p) {
			return apperr.Forbidden("grant " + string(p))
		}
	}
	return nil
}

// checkTarget keeps managers who are not superusers away from superuser accounts.
func checkTarget(actor *policy.Claims, target *models.User) error {
	if actor == nil {
		return apperr.Forbidden("manage users")
	}
	if actor.IsSuperuser() {
		return nil
	}
	if target.Role == models.RoleAdmin || slices.Contains(target.Permissions, models.PermAll) {
		return apperr.Forbidden("modify an administrator")
	}
	return nil
}

func dedupePermissions(perms []models.Permission) []models.Permission {
	out := make([]models.Permission, 0, len(perms))
	seen := make(map[models.Permission]bool, len(perms))
	for _, p := range perms {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// mapWriteError converts store write failures into application errors.
func mapWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrDuplicateEntry):
		field := store.DuplicateField(err)
		if field == "" {
			field = "username"
		}
		return apperr.Duplicate(field)
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("user")
	}
	return err
}
