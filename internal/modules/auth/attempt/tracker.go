// Package attempt records authentication attempts for lockout and audit.
package attempt

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mileusna/useragent"
	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/pkg/pagination"
	"github.com/qalam-news/core/internal/pkg/response"
	"github.com/qalam-news/core/internal/store"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// Reasons stored on failed attempts.
const (
	ReasonUserNotFound       = "USER_NOT_FOUND"
	ReasonAccountDisabled    = "ACCOUNT_DISABLED"
	ReasonAccountLocked      = "ACCOUNT_LOCKED"
	ReasonInvalidCredentials = "INVALID_CREDENTIALS"
	ReasonInternal           = "INTERNAL_ERROR"
)

// Attempt is one authentication outcome to record.
type Attempt struct {
	Username  string
	IP        string
	UserAgent string
	Success   bool
	Reason    string
}

// Tracker appends login attempts in the background and answers lockout queries.
type Tracker struct {
	store     store.Store
	logger    *zap.Logger
	now       func() time.Time
	retention time.Duration
	wg        sync.WaitGroup
}

type Option func(*Tracker)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithRetention overrides how long attempts are kept.
func WithRetention(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.retention = d
		}
	}
}

func NewTracker(st store.Store, logger *zap.Logger, opts ...Option) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		store:     st,
		logger:    logger.Named("AttemptTracker"),
		now:       time.Now,
		retention: models.LoginAttemptRetention,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record stores a in the background. It never blocks on the store and never fails;
// write errors are logged.
func (t *Tracker) Record(a Attempt) {
	doc := t.build(a)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := t.store.Insert(ctx, models.CollectionLoginAttempts, doc); err != nil {
			t.logger.Warn("record login attempt failed",
				zap.String("username", doc.Username),
				zap.Bool("success", doc.Success),
				zap.Error(err))
		}
	}()
}

// Wait blocks until every pending Record has been written or has failed.
func (t *Tracker) Wait() { t.wg.Wait() }

func (t *Tracker) build(a Attempt) *models.LoginAttempt {
	ua := useragent.Parse(a.UserAgent)
	doc := &models.LoginAttempt{
		ID:        models.NewID(),
		Username:  normalizeUsername(a.Username),
		IP:        a.IP,
		UserAgent: a.UserAgent,
		Browser:   ua.Name,
		OS:        ua.OS,
		Device:    deviceType(ua),
		Success:   a.Success,
		Reason:    a.Reason,
		Timestamp: t.now().UTC().Truncate(time.Millisecond),
	}
	if a.Success {
		doc.Reason = ""
	}
	if doc.Browser == "" {
		doc.Browser = "Unknown"
	}
	if doc.OS == "" {
		doc.OS = "Unknown"
	}
	return doc
}

func deviceType(ua useragent.UserAgent) string {
	switch {
	case ua.Mobile:
		return "mobile"
	case ua.Tablet:
		return "tablet"
	case ua.Bot:
		return "bot"
	default:
		return "desktop"
	}
}

// CountRecentFailures returns the failures for username inside the window that
// happened after the latest success in the same window.
func (t *Tracker) CountRecentFailures(ctx context.Context, username string, window time.Duration) (int, error) {
	if window <= 0 {
		return 0, nil
	}
	since := t.now().Add(-window)
	var recent []models.LoginAttempt
	err := t.store.Find(ctx, models.CollectionLoginAttempts, store.Filter{
		"username":  normalizeUsername(username),
		"timestamp": store.Filter{"$gte": since},
	}, store.FindOptions{
		Sort: []store.SortField{{Field: "timestamp", Desc: true}},
	}, &recent)
	if err != nil {
		return 0, fmt.Errorf("count recent failures: %w", err)
	}

	// Rejections while locked and internal errors are not guesses and do not
	// extend a lockout.
	failures := 0
	for _, a := range recent {
		if a.Success {
			break
		}
		if a.Reason == ReasonAccountLocked || a.Reason == ReasonInternal {
			continue
		}
		failures++
	}
	return failures, nil
}

// ListQuery filters the audit listing.
type ListQuery struct {
	Username string
	Success  *bool
	Page     pagination.Query
}

// List returns attempts newest first.
func (t *Tracker) List(ctx context.Context, q ListQuery) ([]models.LoginAttempt, response.Pagination, error) {
	filter := store.Filter{}
	if u := normalizeUsername(q.Username); u != "" {
		filter["username"] = u
	}
	if q.Success != nil {
		filter["success"] = *q.Success
	}
	items := []models.LoginAttempt{}
	meta, err := pagination.Paginate(ctx, t.store, models.CollectionLoginAttempts, filter,
		[]store.SortField{{Field: "timestamp", Desc: true}}, q.Page, &items)
	if err != nil {
		return nil, response.Pagination{}, fmt.Errorf("list login attempts: %w", err)
	}
	return items, meta, nil
}

// Purge deletes attempts older than the retention window.
func (t *Tracker) Purge(ctx context.Context) (int64, error) {
	cutoff := t.now().Add(-t.retention)
	n, err := t.store.DeleteMany(ctx, models.CollectionLoginAttempts, store.Filter{
		"timestamp": store.Filter{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("purge login attempts: %w", err)
	}
	if n > 0 {
		t.logger.Info("purged expired login attempts", zap.Int64("count", n))
	}
	return n, nil
}

func normalizeUsername(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}
