// Package ads manages advertisements and their delivery counters.
package ads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/pkg/apperr"
	"github.com/qalam-news/core/internal/pkg/pagination"
	"github.com/qalam-news/core/internal/pkg/response"
	"github.com/qalam-news/core/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

var (
	sortNewest = []store.SortField{{Field: "createdAt", Desc: true}, {Field: "_id"}}
	sortServe  = []store.SortField{{Field: "priority", Desc: true}, {Field: "createdAt"}, {Field: "_id"}}
)

type Service struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(st store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, logger: logger.Named("AdsService"), now: time.Now}
}

// WithClock replaces the time source. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]models.Advertisement, response.Pagination, error) {
	filter := store.Filter{}
	if q.Placement != "" {
		filter["placement"] = q.Placement
	}
	if q.Active != nil {
		filter["active"] = *q.Active
	}
	ads := []models.Advertisement{}
	meta, err := pagination.Paginate(ctx, s.store, models.CollectionAdvertisements, filter, sortNewest, q.Page, &ads)
	if err != nil {
		return nil, response.Pagination{}, fmt.Errorf("list ads: %w", err)
	}
	return ads, meta, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Advertisement, error) {
	var ad models.Advertisement
	if err := s.store.FindOne(ctx, models.CollectionAdvertisements, store.Filter{"_id": id}, &ad); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("advertisement")
		}
		return nil, fmt.Errorf("get ad: %w", err)
	}
	return &ad, nil
}

func (s *Service) Create(ctx context.Context, createdBy string, dto CreateDTO) (*models.Advertisement, error) {
	ad := &models.Advertisement{
		Title:       dto.Title.Trimmed(),
		Description: dto.Description.Trimmed(),
		CTA:         dto.CTA.Trimmed(),
		ImageURL:    strings.TrimSpace(dto.ImageURL),
		LinkURL:     strings.TrimSpace(dto.LinkURL),
		Placement:   dto.Placement,
		StartsAt:    dto.StartsAt.UTC(),
		EndsAt:      dto.EndsAt.UTC(),
		Priority:    dto.Priority,
		Active:      true,
		CreatedBy:   createdBy,
	}
	if dto.Active != nil {
		ad.Active = *dto.Active
	}
	if err := ad.Validate(); err != nil {
		return nil, err
	}
	ad.Prepare(s.timestamp())
	if err := s.store.Insert(ctx, models.CollectionAdvertisements, ad); err != nil {
		return nil, fmt.Errorf("create ad: %w", err)
	}
	s.logger.Info("ad created", zap.String("id", ad.ID), zap.String("placement", string(ad.Placement)))
	return ad, nil
}

// Update applies the non-nil fields. Counters are never touched here.
func (s *Service) Update(ctx context.Context, id string, dto UpdateDTO) (*models.Advertisement, error) {
	ad, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if dto.Title != nil {
		ad.Title = dto.Title.Trimmed()
	}
	if dto.Description != nil {
		ad.Description = dto.Description.Trimmed()
	}
	if dto.CTA != nil {
		ad.CTA = dto.CTA.Trimmed()
	}
	if dto.ImageURL != nil {
		ad.ImageURL = strings.TrimSpace(*dto.ImageURL)
	}
	if dto.LinkURL != nil {
		ad.LinkURL = strings.TrimSpace(*dto.LinkURL)
	}
	if dto.Placement != nil {
		ad.Placement = *dto.Placement
	}
	if dto.StartsAt != nil {
		ad.StartsAt = dto.StartsAt.UTC()
	}
	if dto.EndsAt != nil {
		ad.EndsAt = dto.EndsAt.UTC()
	}
	if dto.Priority != nil {
		ad.Priority = *dto.Priority
	}
	if dto.Active != nil {
		ad.Active = *dto.Active
	}
	if err := ad.Validate(); err != nil {
		return nil, err
	}
	ad.UpdatedAt = s.timestamp()

	set := bson.M{
		"title":       ad.Title,
		"description": ad.Description,
		"cta":         ad.CTA,
		"imageUrl":    ad.ImageURL,
		"linkUrl":     ad.LinkURL,
		"placement":   ad.Placement,
		"startsAt":    ad.StartsAt,
		"endsAt":      ad.EndsAt,
		"priority":    ad.Priority,
		"active":      ad.Active,
		"updatedAt":   ad.UpdatedAt,
	}
	if err := s.store.UpdateOne(ctx, models.CollectionAdvertisements, store.Filter{"_id": id}, set); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("advertisement")
		}
		return nil, fmt.Errorf("update ad: %w", err)
	}
	return ad, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteOne(ctx, models.CollectionAdvertisements, store.Filter{"_id": id}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("advertisement")
		}
		return fmt.Errorf("delete ad: %w", err)
	}
	s.logger.Info("ad deleted", zap.String("id", id))
	return nil
}

// Live returns the ads servable now, highest priority first and oldest first
// within a priority. An empty placement matches every slot.
func (s *Service) Live(ctx context.Context, placement models.Placement) ([]models.Advertisement, error) {
	now := s.timestamp()
	filter := store.Filter{
		"active":   true,
		"startsAt": bson.M{"$lte": now},
		"endsAt":   bson.M{"$gte": now},
	}
	if placement != "" {
		filter["placement"] = placement
	}
	var found []models.Advertisement
	if err := s.store.Find(ctx, models.CollectionAdvertisements, filter, store.FindOptions{Sort: sortServe}, &found); err != nil {
		return nil, fmt.Errorf("live ads: %w", err)
	}
	live := make([]models.Advertisement, 0, len(found))
	for _, ad := range found {
		if ad.IsLive(now) {
			live = append(live, ad)
		}
	}
	return live, nil
}

func (s *Service) RecordImpression(ctx context.Context, id string) error {
	return s.increment(ctx, id, "impressions")
}

func (s *Service) RecordClick(ctx context.Context, id string) error {
	return s.increment(ctx, id, "clicks")
}

func (s *Service) increment(ctx context.Context, id, field string) error {
	err := s.store.IncrementField(ctx, models.CollectionAdvertisements, id, field, 1)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("advertisement")
	}
	if err != nil {
		return fmt.Errorf("record %s: %w", field, err)
	}
	return nil
}

func (s *Service) Stats(ctx context.Context, id string) (*Stats, error) {
	ad, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Stats{ID: ad.ID, Impressions: ad.Impressions, Clicks: ad.Clicks, CTR: ad.CTR()}, nil
}
