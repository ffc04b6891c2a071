// Package search runs substring search across articles and videos.
package search

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qalam-news/core/internal/middleware"
	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/modules/content"
	"github.com/qalam-news/core/internal/modules/content/article"
	"github.com/qalam-news/core/internal/modules/content/video"
	"github.com/qalam-news/core/internal/pkg/apperr"
	"github.com/qalam-news/core/internal/pkg/lang"
	"github.com/qalam-news/core/internal/pkg/response"
	"github.com/qalam-news/core/internal/policy"
	"go.uber.org/zap"
)

const maxQueryLength = 100

// Result is a single search hit returned to the client.
type Result struct {
	ID          string               `json:"id"`
	Kind        models.ContentKind   `json:"kind"`
	Title       models.LocalizedText `json:"title"`
	Description models.LocalizedText `json:"description"`
	State       models.ContentState  `json:"state"`
	CreatedAt   time.Time            `json:"createdAt"`
	Resolved    string               `json:"resolvedTitle,omitempty"`
}

// Service searches every content kind with the caller's visibility.
type Service struct {
	articles *article.Service
	videos   *video.Service
	logger   *zap.Logger
}

func NewService(articles *article.Service, videos *video.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{articles: articles, videos: videos, logger: logger.Named("SearchService")}
}

// Search returns at most limit hits per kind, newest first overall.
func (s *Service) Search(ctx context.Context, viewer *policy.Claims, q string, limit int) ([]Result, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []Result{}, nil
	}
	if len([]rune(q)) > maxQueryLength {
		return nil, apperr.Validation("q", "is too long")
	}

	articles, err := s.articles.Search(ctx, viewer, q, limit)
	if err != nil {
		return nil, err
	}
	videos, err := s.videos.Search(ctx, viewer, q, limit)
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(articles)+len(videos))
	for _, a := range articles {
		out = append(out, hit(models.KindArticle, a.Meta()))
	}
	for _, v := range videos {
		out = append(out, hit(models.KindVideo, v.Meta()))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	s.logger.Debug("search", zap.String("q", q), zap.Int("hits", len(out)))
	return out, nil
}

func hit(kind models.ContentKind, m *models.ContentMeta) Result {
	return Result{
		ID:          m.ID,
		Kind:        kind,
		Title:       m.Title,
		Description: m.Description,
		State:       m.State,
		CreatedAt:   m.CreatedAt,
	}
}

type Handler struct {
	svc    *Service
	verify middleware.TokenVerifier
}

func NewHandler(svc *Service, verify middleware.TokenVerifier) *Handler {
	return &Handler{svc: svc, verify: verify}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, _ gin.HandlerFunc) {
	rg.GET("/search", middleware.OptionalAuth(h.verify), h.search)
}

// GET /search?q=&limit=
func (h *Handler) search(c *gin.Context) {
	limit := content.SearchLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.Error(c, apperr.Validation("limit", "must be a positive integer"))
			return
		}
		limit = n
	}
	results, err := h.svc.Search(c.Request.Context(), middleware.CurrentClaims(c), c.Query("q"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	if l, ok := lang.FromRequest(c); ok {
		for i := range results {
			results[i].Resolved = results[i].Title.Resolve(l)
		}
	}
	response.OK(c, results)
}
