// Package settings stores runtime platform toggles keyed by name.
package settings

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/pkg/apperr"
	"github.com/qalam-news/core/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,63}$`)

// UpsertDTO sets a setting. Nil fields keep their stored value on update.
type UpsertDTO struct {
	Value       interface{} `json:"value"`
	Enabled     *bool       `json:"enabled"`
	Description *string     `json:"description"`
}

// Service manages admin settings and caches the public map until the next write.
type Service struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time

	mu     sync.RWMutex
	public map[string]interface{}
}

func NewService(st store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, logger: logger.Named("SettingsService"), now: time.Now}
}

func NormalizeKey(key string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if !keyPattern.MatchString(key) {
		return "", apperr.Validation("key", "must be 1-64 lowercase letters, digits, dot, dash or underscore")
	}
	return key, nil
}

func (s *Service) List(ctx context.Context) ([]models.AdminSetting, error) {
	out := []models.AdminSetting{}
	opts := store.FindOptions{Sort: []store.SortField{{Field: "key"}}}
	if err := s.store.Find(ctx, models.CollectionAdminSettings, store.Filter{}, opts, &out); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	for i := range out {
		out[i].Value = plain(out[i].Value)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, key string) (*models.AdminSetting, error) {
	key, err := NormalizeKey(key)
	if err != nil {
		return nil, err
	}
	var setting models.AdminSetting
	if err := s.store.FindOne(ctx, models.CollectionAdminSettings, store.Filter{"key": key}, &setting); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("setting")
		}
		return nil, fmt.Errorf("get setting: %w", err)
	}
	setting.Value = plain(setting.Value)
	return &setting, nil
}

// Upsert creates the setting or updates the stored one. New settings are enabled
// unless the caller says otherwise.
func (s *Service) Upsert(ctx context.Context, key string, dto UpsertDTO, updatedBy string) (*models.AdminSetting, error) {
	existing, err := s.Get(ctx, key)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	now := s.now().UTC().Truncate(time.Millisecond)
	defer s.invalidate()

	if existing == nil {
		key, _ = NormalizeKey(key)
		setting := &models.AdminSetting{Key: key, Value: dto.Value, Enabled: true, UpdatedBy: updatedBy}
		if dto.Enabled != nil {
			setting.Enabled = *dto.Enabled
		}
		if dto.Description != nil {
			setting.Description = strings.TrimSpace(*dto.Description)
		}
		setting.Prepare(now)
		if err := s.store.Insert(ctx, models.CollectionAdminSettings, setting); err != nil {
			if errors.Is(err, store.ErrDuplicateEntry) {
				return nil, apperr.Duplicate("key")
			}
			return nil, fmt.Errorf("create setting: %w", err)
		}
		s.logger.Info("setting created", zap.String("key", key), zap.String("by", updatedBy))
		return setting, nil
	}

	existing.Value = dto.Value
	if dto.Enabled != nil {
		existing.Enabled = *dto.Enabled
	}
	if dto.Description != nil {
		existing.Description = strings.TrimSpace(*dto.Description)
	}
	existing.UpdatedBy = updatedBy
	existing.UpdatedAt = now
	set := bson.M{
		"value":       existing.Value,
		"enabled":     existing.Enabled,
		"description": existing.Description,
		"updatedBy":   updatedBy,
		"updatedAt":   now,
	}
	if err := s.store.UpdateOne(ctx, models.CollectionAdminSettings, store.Filter{"_id": existing.ID}, set); err != nil {
		return nil, fmt.Errorf("update setting: %w", err)
	}
	s.logger.Info("setting updated", zap.String("key", existing.Key), zap.String("by", updatedBy))
	return existing, nil
}

func (s *Service) Delete(ctx context.Context, key string) error {
	key, err := NormalizeKey(key)
	if err != nil {
		return err
	}
	if err := s.store.DeleteOne(ctx, models.CollectionAdminSettings, store.Filter{"key": key}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("setting")
		}
		return fmt.Errorf("delete setting: %w", err)
	}
	s.invalidate()
	return nil
}

// Public returns key -> value for every enabled setting.
func (s *Service) Public(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	if s.public != nil {
		defer s.mu.RUnlock()
		return s.public, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.public != nil {
		return s.public, nil
	}
	var enabled []models.AdminSetting
	if err := s.store.Find(ctx, models.CollectionAdminSettings, store.Filter{"enabled": true}, store.FindOptions{}, &enabled); err != nil {
		return nil, fmt.Errorf("public settings: %w", err)
	}
	out := make(map[string]interface{}, len(enabled))
	for _, setting := range enabled {
		out[setting.Key] = plain(setting.Value)
	}
	s.public = out
	return out, nil
}

func (s *Service) invalidate() {
	s.mu.Lock()
	s.public = nil
	s.mu.Unlock()
}

// plain converts decoded BSON containers into JSON-friendly maps and slices.
func plain(v interface{}) interface{} {
	switch x := v.(type) {
	case bson.D:
		m := make(map[string]interface{}, len(x))
		for _, e := range x {
			m[e.Key] = plain(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]interface{}, len(x))
		for k, val := range x {
			m[k] = plain(val)
		}
		return m
	case bson.A:
		out := make([]interface{}, len(x))
		for i := range x {
			out[i] = plain(x[i])
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i := range x {
			out[i] = plain(x[i])
		}
		return out
	case primitive.DateTime:
		return x.Time().UTC()
	}
	return v
}
