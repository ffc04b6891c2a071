package policy

import "github.com/qalam-news/core/internal/models"

// Item is anything with a draft/published lifecycle and an owner.
type Item interface {
	Kind() models.ContentKind
	LifecycleState() models.ContentState
	OwnerID() string
}

// ManageCapability is the permission that lets a non-admin see every item of kind,
// drafts included.
func ManageCapability(kind models.ContentKind) models.Permission {
	return models.Permission(ContentAction(VerbEdit, kind))
}

// CanViewAll reports whether viewer sees drafts of kind regardless of owner.
func CanViewAll(viewer *Claims, kind models.ContentKind) bool {
	if viewer == nil || viewer.UserID == "" {
		return false
	}
	return viewer.IsAdmin() || viewer.Has(models.PermAll) || viewer.Has(ManageCapability(kind))
}

// CanView reports whether viewer may see item.
func CanView(viewer *Claims, item Item) bool {
	if item.LifecycleState() == models.StatePublished {
		return true
	}
	if CanViewAll(viewer, item.Kind()) {
		return true
	}
	return viewer != nil && viewer.UserID != "" && item.OwnerID() == viewer.UserID
}

// FilterForViewer keeps the items viewer may see, preserving input order.
func FilterForViewer[T Item](items []T, viewer *Claims) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if CanView(viewer, item) {
			out = append(out, item)
		}
	}
	return out
}
