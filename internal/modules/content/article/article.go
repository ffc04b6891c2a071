// Package article serves news articles.
package article

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/qalam-news/core/internal/middleware"
	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/modules/content"
	"github.com/qalam-news/core/internal/pkg/lang"
	"github.com/qalam-news/core/internal/pkg/markdown"
	"github.com/qalam-news/core/internal/store"
	"go.uber.org/zap"
)

type (
	Service = content.Service[models.Article, *models.Article]
	Handler = content.Handler[models.Article, *models.Article]
)

func NewService(st store.Store, logger *zap.Logger) *Service {
	return content.NewService[models.Article, *models.Article](st, logger)
}

func NewHandler(svc *Service, renderer *markdown.Renderer, verify middleware.TokenVerifier, logger *zap.Logger) *Handler {
	return content.NewHandler[models.Article, *models.Article]("/articles", svc, &adapter{renderer: renderer}, verify, logger)
}

type CreateDTO struct {
	Title       models.LocalizedText `json:"title"`
	Description models.LocalizedText `json:"description"`
	Body        models.LocalizedText `json:"body"`
	Category    string               `json:"category"`
	Tags        []string             `json:"tags"`
	State       models.ContentState  `json:"state"`
}

type UpdateDTO struct {
	Title       *models.LocalizedText `json:"title"`
	Description *models.LocalizedText `json:"description"`
	Body        *models.LocalizedText `json:"body"`
	Category    *string               `json:"category"`
	Tags        *[]string             `json:"tags"`
}

// Response is an article plus the optional per-request views of it.
type Response struct {
	*models.Article
	Resolved *Resolved             `json:"resolved,omitempty"`
	HTML     *models.LocalizedText `json:"html,omitempty"`
}

// Resolved holds the strings for the negotiated language.
type Resolved struct {
	Lang        models.Lang `json:"lang"`
	RTL         bool        `json:"rtl"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Body        string      `json:"body"`
}

type adapter struct {
	renderer *markdown.Renderer
}

func (a *adapter) Decode(c *gin.Context) (*models.Article, error) {
	var dto CreateDTO
	if err := content.BindJSON(c, &dto); err != nil {
		return nil, err
	}
	art := &models.Article{
		Body:     dto.Body.Trimmed(),
		Category: strings.TrimSpace(dto.Category),
		Tags:     normalizeTags(dto.Tags),
	}
	art.Title = dto.Title
	art.Description = dto.Description
	art.State = dto.State
	return art, nil
}

func (a *adapter) Patch(c *gin.Context) (func(*models.Article) error, error) {
	var dto UpdateDTO
	if err := content.BindJSON(c, &dto); err != nil {
		return nil, err
	}
	return func(art *models.Article) error {
		if dto.Title != nil {
			art.Title = *dto.Title
		}
		if dto.Description != nil {
			art.Description = *dto.Description
		}
		if dto.Body != nil {
			art.Body = dto.Body.Trimmed()
		}
		if dto.Category != nil {
			art.Category = strings.TrimSpace(*dto.Category)
		}
		if dto.Tags != nil {
			art.Tags = normalizeTags(*dto.Tags)
		}
		return nil
	}, nil
}

func (a *adapter) Filter(c *gin.Context) (store.Filter, error) {
	f := store.Filter{}
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		f["category"] = category
	}
	if tag := strings.ToLower(strings.TrimSpace(c.Query("tag"))); tag != "" {
		f["tags"] = tag
	}
	return f, nil
}

func (a *adapter) Present(c *gin.Context, art *models.Article) (interface{}, error) {
	resp := Response{Article: art}
	if l, ok := lang.FromRequest(c); ok {
		resp.Resolved = &Resolved{
			Lang:        l,
			RTL:         l.IsRTL(),
			Title:       art.Title.Resolve(l),
			Description: art.Description.Resolve(l),
			Body:        art.Body.Resolve(l),
		}
	}
	if c.Query("render") == "html" && a.renderer != nil {
		html, err := a.renderer.RenderLocalized(art.Body)
		if err != nil {
			return nil, err
		}
		resp.HTML = &html
	}
	return resp, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
