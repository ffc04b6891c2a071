package content

import (
	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/policy"
	"github.com/qalam-news/core/internal/store"
)

// VisibilityQuery is policy.CanView expressed as a store filter, so paginated
// listings count and page over exactly the items the viewer may see.
func VisibilityQuery(viewer *policy.Claims, kind models.ContentKind) store.Filter {
	if policy.CanViewAll(viewer, kind) {
		return store.Filter{}
	}
	published := store.Filter{"state": models.StatePublished}
	if viewer == nil || viewer.UserID == "" {
		return published
	}
	return store.Filter{"$or": []store.Filter{
		published,
		{"createdBy": viewer.UserID},
	}}
}

// and combines filters, dropping empty ones.
func and(filters ...store.Filter) store.Filter {
	parts := make([]store.Filter, 0, len(filters))
	for _, f := range filters {
		if len(f) > 0 {
			parts = append(parts, f)
		}
	}
	switch len(parts) {
	case 0:
		return store.Filter{}
	case 1:
		return parts[0]
	}
	return store.Filter{"$and": parts}
}
