package models

import (
	"time"

	"github.com/qalam-news/core/internal/pkg/apperr"
)

// Placement is the page slot an advertisement competes for.
type Placement string

const (
	PlacementSidebar Placement = "sidebar"
	PlacementInline  Placement = "inline"
)

func (p Placement) Valid() bool { return p == PlacementSidebar || p == PlacementInline }

// Advertisement is a scheduled promotional slot entry.
// Impressions and Clicks are only changed through atomic increments.
type Advertisement struct {
	Base        `bson:",inline"`
	Title       LocalizedText `json:"title"       bson:"title"`
	Description LocalizedText `json:"description" bson:"description"`
	CTA         LocalizedText `json:"cta"         bson:"cta"`
	ImageURL    string        `json:"imageUrl"    bson:"imageUrl"`
	LinkURL     string        `json:"linkUrl"     bson:"linkUrl"`
	Placement   Placement     `json:"placement"   bson:"placement"`
	StartsAt    time.Time     `json:"startsAt"    bson:"startsAt"`
	EndsAt      time.Time     `json:"endsAt"      bson:"endsAt"`
	Priority    int           `json:"priority"    bson:"priority"`
	Active      bool          `json:"active"      bson:"active"`
	Impressions int64         `json:"impressions" bson:"impressions"`
	Clicks      int64         `json:"clicks"      bson:"clicks"`
	CreatedBy   string        `json:"createdBy"   bson:"createdBy"`
}

// IsLive reports whether the ad may be served at now. Both window bounds are inclusive.
func (a Advertisement) IsLive(now time.Time) bool {
	return a.Active && !now.Before(a.StartsAt) && !now.After(a.EndsAt)
}

// CTR is clicks per impression, 0 when there are no impressions.
func (a Advertisement) CTR() float64 {
	if a.Impressions == 0 {
		return 0
	}
	return float64(a.Clicks) / float64(a.Impressions)
}

func (a *Advertisement) Validate() error {
	texts := []struct {
		field string
		text  LocalizedText
	}{
		{"title", a.Title},
		{"description", a.Description},
		{"cta", a.CTA},
	}
	for _, t := range texts {
		if err := t.text.Validate(t.field); err != nil {
			return err
		}
	}
	if !a.Placement.Valid() {
		return apperr.Validation("placement", "must be sidebar or inline")
	}
	if a.StartsAt.IsZero() || a.EndsAt.IsZero() {
		return apperr.Validation("startsAt", "start and end are required")
	}
	if !a.EndsAt.After(a.StartsAt) {
		return apperr.Validation("endsAt", "must be after startsAt")
	}
	if !isHTTPURL(a.LinkURL) {
		return apperr.Validation("linkUrl", "must be an absolute http(s) url")
	}
	return nil
}
