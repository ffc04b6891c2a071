package ads

import (
	"time"

	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/pkg/pagination"
)

type CreateDTO struct {
	Title       models.LocalizedText `json:"title"`
	Description models.LocalizedText `json:"description"`
	CTA         models.LocalizedText `json:"cta"`
	ImageURL    string               `json:"imageUrl"`
	LinkURL     string               `json:"linkUrl"`
	Placement   models.Placement     `json:"placement"`
	StartsAt    time.Time            `json:"startsAt"`
	EndsAt      time.Time            `json:"endsAt"`
	Priority    int                  `json:"priority"`
	Active      *bool                `json:"active"`
}

type UpdateDTO struct {
	Title       *models.LocalizedText `json:"title"`
	Description *models.LocalizedText `json:"description"`
	CTA         *models.LocalizedText `json:"cta"`
	ImageURL    *string               `json:"imageUrl"`
	LinkURL     *string               `json:"linkUrl"`
	Placement   *models.Placement     `json:"placement"`
	StartsAt    *time.Time            `json:"startsAt"`
	EndsAt      *time.Time            `json:"endsAt"`
	Priority    *int                  `json:"priority"`
	Active      *bool                 `json:"active"`
}

type ListQuery struct {
	Placement models.Placement
	Active    *bool
	Page      pagination.Query
}

// Stats summarizes the delivery counters of one ad.
type Stats struct {
	ID          string  `json:"id"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	CTR         float64 `json:"ctr"`
}
