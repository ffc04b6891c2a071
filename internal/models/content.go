package models

import (
	"net/url"
	"strings"
	"time"

	"github.com/qalam-news/core/internal/pkg/apperr"
)

// ContentKind distinguishes articles from videos.
type ContentKind string

const (
	KindArticle ContentKind = "article"
	KindVideo   ContentKind = "video"
)

// ContentState is the lifecycle state of a content item.
type ContentState string

const (
	StateDraft     ContentState = "draft"
	StatePublished ContentState = "published"
)

func (s ContentState) Valid() bool { return s == StateDraft || s == StatePublished }

// ContentMeta holds the fields shared by articles and videos.
type ContentMeta struct {
	Base        `bson:",inline"`
	Title       LocalizedText `json:"title"                 bson:"title"`
	Description LocalizedText `json:"description"           bson:"description"`
	State       ContentState  `json:"state"                 bson:"state"`
	CreatedBy   string        `json:"createdBy"             bson:"createdBy"`
	PublishedAt *time.Time    `json:"publishedAt,omitempty" bson:"publishedAt,omitempty"`
	Views       int64         `json:"views"                 bson:"views"`
}

// LifecycleState returns the draft/published state.
func (m ContentMeta) LifecycleState() ContentState { return m.State }

// OwnerID returns the id of the creating user.
func (m ContentMeta) OwnerID() string { return m.CreatedBy }

// Meta exposes the shared fields for in-place updates.
func (m *ContentMeta) Meta() *ContentMeta { return m }

func (m ContentMeta) validate() error {
	if err := m.Title.Validate("title"); err != nil {
		return err
	}
	if err := m.Description.Validate("description"); err != nil {
		return err
	}
	if !m.State.Valid() {
		return apperr.Validation("state", "must be draft or published")
	}
	return nil
}

// Article is a written news item.
type Article struct {
	ContentMeta `bson:",inline"`
	Body        LocalizedText `json:"body"     bson:"body"`
	Category    string        `json:"category" bson:"category"`
	Tags        []string      `json:"tags"     bson:"tags"`
}

func (Article) Kind() ContentKind { return KindArticle }

func (a *Article) Validate() error {
	if err := a.ContentMeta.validate(); err != nil {
		return err
	}
	if err := a.Body.Validate("body"); err != nil {
		return err
	}
	if strings.TrimSpace(a.Category) == "" {
		return apperr.Validation("category", "is required")
	}
	return nil
}

// VideoPlatform is the hosting source of a video.
type VideoPlatform string

const (
	PlatformYouTube  VideoPlatform = "youtube"
	PlatformVimeo    VideoPlatform = "vimeo"
	PlatformFacebook VideoPlatform = "facebook"
	PlatformOther    VideoPlatform = "other"
)

func (p VideoPlatform) Valid() bool {
	switch p {
	case PlatformYouTube, PlatformVimeo, PlatformFacebook, PlatformOther:
		return true
	}
	return false
}

// Video is an externally hosted video item.
type Video struct {
	ContentMeta `bson:",inline"`
	Platform    VideoPlatform `json:"platform"            bson:"platform"`
	URL         string        `json:"url"                 bson:"url"`
	Thumbnail   string        `json:"thumbnail,omitempty" bson:"thumbnail,omitempty"`
	Duration    int           `json:"duration"            bson:"duration"` // seconds
}

func (Video) Kind() ContentKind { return KindVideo }

func (v *Video) Validate() error {
	if err := v.ContentMeta.validate(); err != nil {
		return err
	}
	if !v.Platform.Valid() {
		return apperr.Validation("platform", "must be one of youtube, vimeo, facebook, other")
	}
	if !isHTTPURL(v.URL) {
		return apperr.Validation("url", "must be an absolute http(s) url")
	}
	if v.Duration < 0 {
		return apperr.Validation("duration", "must not be negative")
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
