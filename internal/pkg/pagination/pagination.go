package pagination

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/qalam-news/core/internal/pkg/response"
	"github.com/qalam-news/core/internal/store"
)

const (
	DefaultPage = 1
	DefaultSize = 10
	MaxSize     = 100
)

// Query holds parsed pagination parameters.
type Query struct {
	Page int
	Size int
}

// FromContext extracts and validates pagination params from the request.
func FromContext(c *gin.Context) Query {
	page := parseIntOr(c.DefaultQuery("page", "1"), DefaultPage)
	size := parseIntOr(c.DefaultQuery("size", "10"), DefaultSize)
	return Normalize(page, size)
}

// Normalize clamps page and size into their accepted ranges.
func Normalize(page, size int) Query {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return Query{Page: page, Size: size}
}

// Paginate counts the filter's matches and loads the requested page into dest.
func Paginate[T any](ctx context.Context, st store.Store, collection string, filter store.Filter, sort []store.SortField, q Query, dest *[]T) (response.Pagination, error) {
	total, err := st.Count(ctx, collection, filter)
	if err != nil {
		return response.Pagination{}, err
	}

	opts := store.FindOptions{
		Sort:  sort,
		Skip:  int64((q.Page - 1) * q.Size),
		Limit: int64(q.Size),
	}
	if err := st.Find(ctx, collection, filter, opts, dest); err != nil {
		return response.Pagination{}, err
	}

	return Meta(total, q), nil
}

// Meta builds the pagination metadata for total matches.
func Meta(total int64, q Query) response.Pagination {
	totalPage := int((total + int64(q.Size) - 1) / int64(q.Size))
	return response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPage,
		Size:        q.Size,
		HasNextPage: q.Page < totalPage,
	}
}

func parseIntOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
