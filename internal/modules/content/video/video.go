// Package video serves externally hosted videos.
package video

import (
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/qalam-news/core/internal/middleware"
	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/modules/content"
	"github.com/qalam-news/core/internal/pkg/apperr"
	"github.com/qalam-news/core/internal/pkg/lang"
	"github.com/qalam-news/core/internal/store"
	"go.uber.org/zap"
)

type (
	Service = content.Service[models.Video, *models.Video]
	Handler = content.Handler[models.Video, *models.Video]
)

func NewService(st store.Store, logger *zap.Logger) *Service {
	return content.NewService[models.Video, *models.Video](st, logger)
}

func NewHandler(svc *Service, verify middleware.TokenVerifier, logger *zap.Logger) *Handler {
	return content.NewHandler[models.Video, *models.Video]("/videos", svc, adapter{}, verify, logger)
}

type CreateDTO struct {
	Title       models.LocalizedText `json:"title"`
	Description models.LocalizedText `json:"description"`
	Platform    models.VideoPlatform `json:"platform"`
	URL         string               `json:"url"`
	Thumbnail   string               `json:"thumbnail"`
	Duration    int                  `json:"duration"`
	State       models.ContentState  `json:"state"`
}

type UpdateDTO struct {
	Title       *models.LocalizedText `json:"title"`
	Description *models.LocalizedText `json:"description"`
	Platform    *models.VideoPlatform `json:"platform"`
	URL         *string               `json:"url"`
	Thumbnail   *string               `json:"thumbnail"`
	Duration    *int                  `json:"duration"`
}

// Response is a video plus the strings for the negotiated language.
type Response struct {
	*models.Video
	Resolved *Resolved `json:"resolved,omitempty"`
}

type Resolved struct {
	Lang        models.Lang `json:"lang"`
	RTL         bool        `json:"rtl"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
}

type adapter struct{}

func (adapter) Decode(c *gin.Context) (*models.Video, error) {
	var dto CreateDTO
	if err := content.BindJSON(c, &dto); err != nil {
		return nil, err
	}
	v := &models.Video{
		URL:       strings.TrimSpace(dto.URL),
		Thumbnail: strings.TrimSpace(dto.Thumbnail),
		Duration:  dto.Duration,
	}
	v.Title = dto.Title
	v.Description = dto.Description
	v.State = dto.State
	v.Platform = dto.Platform
	if v.Platform == "" {
		v.Platform = DetectPlatform(v.URL)
	}
	return v, nil
}

func (adapter) Patch(c *gin.Context) (func(*models.Video) error, error) {
	var dto UpdateDTO
	if err := content.BindJSON(c, &dto); err != nil {
		return nil, err
	}
	return func(v *models.Video) error {
		if dto.Title != nil {
			v.Title = *dto.Title
		}
		if dto.Description != nil {
			v.Description = *dto.Description
		}
		if dto.URL != nil {
			v.URL = strings.TrimSpace(*dto.URL)
			if dto.Platform == nil {
				v.Platform = DetectPlatform(v.URL)
			}
		}
		if dto.Platform != nil {
			v.Platform = *dto.Platform
		}
		if dto.Thumbnail != nil {
			v.Thumbnail = strings.TrimSpace(*dto.Thumbnail)
		}
		if dto.Duration != nil {
			v.Duration = *dto.Duration
		}
		return nil
	}, nil
}

func (adapter) Filter(c *gin.Context) (store.Filter, error) {
	f := store.Filter{}
	if raw := strings.TrimSpace(c.Query("platform")); raw != "" {
		p := models.VideoPlatform(strings.ToLower(raw))
		if !p.Valid() {
			return nil, apperr.Validation("platform", "must be one of youtube, vimeo, facebook, other")
		}
		f["platform"] = p
	}
	return f, nil
}

func (adapter) Present(c *gin.Context, v *models.Video) (interface{}, error) {
	resp := Response{Video: v}
	if l, ok := lang.FromRequest(c); ok {
		resp.Resolved = &Resolved{
			Lang:        l,
			RTL:         l.IsRTL(),
			Title:       v.Title.Resolve(l),
			Description: v.Description.Resolve(l),
		}
	}
	return resp, nil
}

// DetectPlatform guesses the hosting platform from a video url.
func DetectPlatform(raw string) models.VideoPlatform {
	u, err := url.Parse(raw)
	if err != nil {
		return models.PlatformOther
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch {
	case host == "youtu.be" || host == "youtube.com" || strings.HasSuffix(host, ".youtube.com"):
		return models.PlatformYouTube
	case host == "vimeo.com" || strings.HasSuffix(host, ".vimeo.com"):
		return models.PlatformVimeo
	case host == "facebook.com" || host == "fb.watch" || strings.HasSuffix(host, ".facebook.com"):
		return models.PlatformFacebook
	}
	return models.PlatformOther
}
