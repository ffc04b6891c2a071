package policy

import (
	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/pkg/apperr"
)

// Action is something a caller asks to do. Grantable actions share their
// spelling with models.Permission.
type Action string

const (
	ActionRead           Action = "read"
	ActionCreateArticles Action = Action(models.PermCreateArticles)
	ActionEditArticles   Action = Action(models.PermEditArticles)
	ActionDeleteArticles Action = Action(models.PermDeleteArticles)
	ActionCreateVideos   Action = Action(models.PermCreateVideos)
	ActionEditVideos     Action = Action(models.PermEditVideos)
	ActionDeleteVideos   Action = Action(models.PermDeleteVideos)
	ActionManageUsers    Action = Action(models.PermManageUsers)

	// Not grantable individually: only admins and holders of "all" pass.
	ActionManageAds      Action = "manage:ads"
	ActionManageSettings Action = "manage:settings"
)

// Verb is the operation half of a content action.
type Verb string

const (
	VerbCreate Verb = "create"
	VerbEdit   Verb = "edit"
	VerbDelete Verb = "delete"
)

// ContentAction returns the action for verb on the given content kind.
func ContentAction(verb Verb, kind models.ContentKind) Action {
	return Action(string(verb) + ":" + string(kind) + "s")
}

// Decision is the outcome of Authorize.
type Decision bool

const (
	Allow Decision = true
	Deny  Decision = false
)

func (d Decision) String() string {
	if d {
		return "allow"
	}
	return "deny"
}

// Authorize decides whether claims may perform action on a resource owned by ownerID
// (empty when the resource has no owner or does not exist yet). First match wins:
//
//  1. admin role
//  2. the "all" permission
//  3. the exact permission
//  4. edit/delete of the caller's own content
//
// Reads are always allowed here; what a reader may see is decided by CanView.
func Authorize(claims *Claims, action Action, ownerID string) Decision {
	if action == ActionRead {
		return Allow
	}
	if claims == nil || claims.UserID == "" {
		return Deny
	}
	if claims.Role == models.RoleAdmin {
		return Allow
	}
	if claims.Has(models.PermAll) {
		return Allow
	}
	if claims.Has(models.Permission(action)) {
		return Allow
	}
	if isOwnerModifiable(action) && ownerID != "" && ownerID == claims.UserID {
		return Allow
	}
	return Deny
}

// Require is Authorize returning a Forbidden error on Deny.
func Require(claims *Claims, action Action, ownerID string) error {
	if Authorize(claims, action, ownerID) == Deny {
		return apperr.Forbidden(string(action))
	}
	return nil
}

func isOwnerModifiable(action Action) bool {
	switch action {
	case ActionEditArticles, ActionDeleteArticles, ActionEditVideos, ActionDeleteVideos:
		return true
	}
	return false
}
