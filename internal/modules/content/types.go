package content

import (
	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/pkg/pagination"
	"github.com/qalam-news/core/internal/policy"
	"github.com/qalam-news/core/internal/store"
)

// Document is the pointer form of a content type: *models.Article or *models.Video.
type Document[T any] interface {
	*T
	policy.Item
	Meta() *models.ContentMeta
	Validate() error
}

// ListQuery filters a listing. Extra carries kind-specific conditions.
type ListQuery struct {
	State     models.ContentState
	CreatedBy string
	Extra     store.Filter
	Page      pagination.Query
}

// SearchLimit caps search results per kind.
const SearchLimit = 20

// Sort orders of listings.
var (
	sortNewest = []store.SortField{{Field: "createdAt", Desc: true}, {Field: "_id"}}
)
