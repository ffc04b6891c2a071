// Package store is the document persistence boundary. Services depend on the
// Store interface; MongoStore backs production and MemoryStore backs dev mode and tests.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

var (
	// ErrNotFound is returned when no document matches a filter.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicateEntry is returned when a write violates a unique index.
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// Filter is a Mongo-style query document.
type Filter = bson.M

// SortField orders a Find by one field.
type SortField struct {
	Field string
	Desc  bool
}

// FindOptions controls ordering and paging of Find.
type FindOptions struct {
	Sort  []SortField
	Skip  int64
	Limit int64
}

// IndexSpec declares a single-collection index.
// ExpireAfter > 0 makes it a TTL index on a time field (Keys must hold exactly one field).
type IndexSpec struct {
	Collection  string
	Keys        []string
	Unique      bool
	ExpireAfter time.Duration
}

// Store is the generic document store consumed by every service.
type Store interface {
	// FindOne decodes the first match into out, or returns ErrNotFound.
	FindOne(ctx context.Context, collection string, filter Filter, out interface{}) error
	// Find decodes all matches into out, which must be a pointer to a slice.
	Find(ctx context.Context, collection string, filter Filter, opts FindOptions, out interface{}) error
	Count(ctx context.Context, collection string, filter Filter) (int64, error)
	// Insert stores doc, failing with ErrDuplicateEntry on a unique violation.
	Insert(ctx context.Context, collection string, doc interface{}) error
	// UpdateOne applies set as a $set patch to the first match. ErrNotFound when nothing matches.
	UpdateOne(ctx context.Context, collection string, filter Filter, set bson.M) error
	// IncrementField atomically adds delta to a numeric field of the document with the given id.
	IncrementField(ctx context.Context, collection, id, field string, delta int64) error
	DeleteOne(ctx context.Context, collection string, filter Filter) error
	DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error)
	EnsureIndexes(ctx context.Context, specs []IndexSpec) error
	Ping(ctx context.Context) error
}

// DuplicateKeyError is returned by Insert/UpdateOne on a unique violation; it unwraps to ErrDuplicateEntry.
type DuplicateKeyError struct {
	Collection string
	Field      string
}

func (e *DuplicateKeyError) Error() string {
	if e.Field == "" {
		return ErrDuplicateEntry.Error()
	}
	return ErrDuplicateEntry.Error() + ": " + e.Collection + "." + e.Field
}

func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicateEntry }

// DuplicateField returns the field named in a duplicate error, or "".
func DuplicateField(err error) string {
	var dup *DuplicateKeyError
	if errors.As(err, &dup) {
		return dup.Field
	}
	return ""
}
