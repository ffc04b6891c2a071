// Package content implements the lifecycle shared by articles and videos:
// listing and lookup filtered by visibility, and authorized create, update,
// publish and delete.
package content

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/pkg/apperr"
	"github.com/qalam-news/core/internal/pkg/pagination"
	"github.com/qalam-news/core/internal/pkg/response"
	"github.com/qalam-news/core/internal/policy"
	"github.com/qalam-news/core/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Fields an update never touches.
var immutableFields = []string{"_id", "createdAt", "createdBy", "views", "state", "publishedAt"}

// Service manages one content kind.
type Service[T any, P Document[T]] struct {
	store      store.Store
	kind       models.ContentKind
	collection string
	logger     *zap.Logger
	now        func() time.Time
}

func NewService[T any, P Document[T]](st store.Store, logger *zap.Logger) *Service[T, P] {
	if logger == nil {
		logger = zap.NewNop()
	}
	var zero T
	kind := P(&zero).Kind()
	collection := models.CollectionArticles
	if kind == models.KindVideo {
		collection = models.CollectionVideos
	}
	return &Service[T, P]{
		store:      st,
		kind:       kind,
		collection: collection,
		logger:     logger.Named(strings.ToUpper(string(kind[:1])) + string(kind[1:]) + "Service"),
		now:        time.Now,
	}
}

// WithClock replaces the time source. Tests only.
func (s *Service[T, P]) WithClock(now func() time.Time) *Service[T, P] {
	s.now = now
	return s
}

func (s *Service[T, P]) Kind() models.ContentKind { return s.kind }

func (s *Service[T, P]) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// List returns the page of items viewer may see, newest first.
func (s *Service[T, P]) List(ctx context.Context, viewer *policy.Claims, q ListQuery) ([]P, response.Pagination, error) {
	conds := store.Filter{}
	if q.State != "" {
		conds["state"] = q.State
	}
	if q.CreatedBy != "" {
		conds["createdBy"] = q.CreatedBy
	}
	for k, v := range q.Extra {
		conds[k] = v
	}
	filter := and(VisibilityQuery(viewer, s.kind), conds)

	var rows []T
	meta, err := pagination.Paginate(ctx, s.store, s.collection, filter, sortNewest, q.Page, &rows)
	if err != nil {
		return nil, response.Pagination{}, fmt.Errorf("list %ss: %w", s.kind, err)
	}
	return policy.FilterForViewer(pointers[T, P](rows), viewer), meta, nil
}

// Get returns the item when viewer may see it. Invisible drafts report NotFound
// so their existence does not leak.
func (s *Service[T, P]) Get(ctx context.Context, viewer *policy.Claims, id string) (P, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(viewer, item) {
		return nil, apperr.NotFound(string(s.kind))
	}
	return item, nil
}

func (s *Service[T, P]) load(ctx context.Context, id string) (P, error) {
	item := P(new(T))
	if err := s.store.FindOne(ctx, s.collection, store.Filter{"_id": id}, item); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound(string(s.kind))
		}
		return nil, fmt.Errorf("get %s: %w", s.kind, err)
	}
	return item, nil
}

// Create stores a new item owned by the caller. State defaults to draft.
func (s *Service[T, P]) Create(ctx context.Context, claims *policy.Claims, item P) (P, error) {
	if err := policy.Require(claims, policy.ContentAction(policy.VerbCreate, s.kind), ""); err != nil {
		return nil, err
	}
	meta := item.Meta()
	meta.ID = ""
	meta.CreatedAt = time.Time{}
	meta.CreatedBy = claims.UserID
	meta.Views = 0
	meta.Title = meta.Title.Trimmed()
	meta.Description = meta.Description.Trimmed()
	if meta.State == "" {
		meta.State = models.StateDraft
	}
	now := s.timestamp()
	meta.PublishedAt = nil
	if meta.State == models.StatePublished {
		meta.PublishedAt = &now
	}
	meta.Prepare(now)
	if err := item.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Insert(ctx, s.collection, item); err != nil {
		return nil, fmt.Errorf("create %s: %w", s.kind, err)
	}
	s.logger.Info("created", zap.String("id", meta.ID), zap.String("by", claims.UserID), zap.String("state", string(meta.State)))
	return item, nil
}

// Update loads the item, lets apply mutate it, and stores the editable fields.
// Identity, ownership, counters and lifecycle state are kept from the stored copy.
func (s *Service[T, P]) Update(ctx context.Context, claims *policy.Claims, id string, apply func(P) error) (P, error) {
	item, err := s.authorizedLoad(ctx, claims, id, policy.VerbEdit)
	if err != nil {
		return nil, err
	}
	before := *item.Meta()
	if err := apply(item); err != nil {
		return nil, err
	}
	meta := item.Meta()
	meta.ID = before.ID
	meta.CreatedAt = before.CreatedAt
	meta.CreatedBy = before.CreatedBy
	meta.Views = before.Views
	meta.State = before.State
	meta.PublishedAt = before.PublishedAt
	meta.Title = meta.Title.Trimmed()
	meta.Description = meta.Description.Trimmed()
	meta.UpdatedAt = s.timestamp()
	if err := item.Validate(); err != nil {
		return nil, err
	}

	set, err := editableFields(item)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateOne(ctx, s.collection, store.Filter{"_id": id}, set); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound(string(s.kind))
		}
		return nil, fmt.Errorf("update %s: %w", s.kind, err)
	}
	return item, nil
}

// SetState publishes or unpublishes an item. Publishing stamps publishedAt;
// unpublishing clears it.
func (s *Service[T, P]) SetState(ctx context.Context, claims *policy.Claims, id string, state models.ContentState) (P, error) {
	if !state.Valid() {
		return nil, apperr.Validation("state", "must be draft or published")
	}
	item, err := s.authorizedLoad(ctx, claims, id, policy.VerbEdit)
	if err != nil {
		return nil, err
	}
	meta := item.Meta()
	if meta.State == state {
		return item, nil
	}

	now := s.timestamp()
	meta.State = state
	meta.UpdatedAt = now
	meta.PublishedAt = nil
	if state == models.StatePublished {
		meta.PublishedAt = &now
	}
	set := bson.M{"state": state, "updatedAt": now, "publishedAt": meta.PublishedAt}
	if err := s.store.UpdateOne(ctx, s.collection, store.Filter{"_id": id}, set); err != nil {
		return nil, fmt.Errorf("set %s state: %w", s.kind, err)
	}
	s.logger.Info("state changed", zap.String("id", id), zap.String("state", string(state)), zap.String("by", claims.UserID))
	return item, nil
}

// Delete removes an item.
func (s *Service[T, P]) Delete(ctx context.Context, claims *policy.Claims, id string) error {
	if _, err := s.authorizedLoad(ctx, claims, id, policy.VerbDelete); err != nil {
		return err
	}
	if err := s.store.DeleteOne(ctx, s.collection, store.Filter{"_id": id}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound(string(s.kind))
		}
		return fmt.Errorf("delete %s: %w", s.kind, err)
	}
	s.logger.Info("deleted", zap.String("id", id), zap.String("by", claims.UserID))
	return nil
}

// IncrementViews adds one view without reading the item first.
func (s *Service[T, P]) IncrementViews(ctx context.Context, id string) error {
	return s.store.IncrementField(ctx, s.collection, id, "views", 1)
}

// Search matches q case-insensitively against every language of title and description.
func (s *Service[T, P]) Search(ctx context.Context, viewer *policy.Claims, q string, limit int) ([]P, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []P{}, nil
	}
	if limit <= 0 || limit > SearchLimit {
		limit = SearchLimit
	}
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
	fields := make([]store.Filter, 0, 2*len(models.SupportedLangs))
	for _, field := range []string{"title", "description"} {
		for _, l := range models.SupportedLangs {
			fields = append(fields, store.Filter{field + "." + string(l): pattern})
		}
	}
	filter := and(VisibilityQuery(viewer, s.kind), store.Filter{"$or": fields})

	var rows []T
	err := s.store.Find(ctx, s.collection, filter, store.FindOptions{Sort: sortNewest, Limit: int64(limit)}, &rows)
	if err != nil {
		return nil, fmt.Errorf("search %ss: %w", s.kind, err)
	}
	return policy.FilterForViewer(pointers[T, P](rows), viewer), nil
}

// authorizedLoad hides invisible items behind NotFound before checking the action.
func (s *Service[T, P]) authorizedLoad(ctx context.Context, claims *policy.Claims, id string, verb policy.Verb) (P, error) {
	item, err := s.Get(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Require(claims, policy.ContentAction(verb, s.kind), item.OwnerID()); err != nil {
		return nil, err
	}
	return item, nil
}

func editableFields(doc interface{}) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode update: %w", err)
	}
	var set bson.M
	if err := bson.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("decode update: %w", err)
	}
	for _, f := range immutableFields {
		delete(set, f)
	}
	return set, nil
}

func pointers[T any, P Document[T]](rows []T) []P {
	out := make([]P, len(rows))
	for i := range rows {
		out[i] = P(&rows[i])
	}
	return out
}
