package models

import (
	"time"

	"github.com/google/uuid"
)

// Collection names.
const (
	CollectionUsers          = "users"
	CollectionArticles       = "articles"
	CollectionVideos         = "videos"
	CollectionAdvertisements = "advertisements"
	CollectionLoginAttempts  = "login_attempts"
	CollectionAdminSettings  = "admin_settings"
)

// AllCollections lists every collection the platform owns, in backup order.
var AllCollections = []string{
	CollectionUsers,
	CollectionArticles,
	CollectionVideos,
	CollectionAdvertisements,
	CollectionAdminSettings,
	CollectionLoginAttempts,
}

// Base is embedded by every stored aggregate.
// ID is a UUID string so it reads the same through the Mongo and in-memory stores.
type Base struct {
	ID        string    `json:"id"        bson:"_id"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// NewID returns a fresh document id.
func NewID() string { return uuid.NewString() }

// Prepare fills the id and timestamps before an insert.
func (b *Base) Prepare(now time.Time) {
	if b.ID == "" {
		b.ID = NewID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}
