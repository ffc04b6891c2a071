package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qalam-news/core/internal/middleware"
	"github.com/qalam-news/core/internal/modules/ads"
	"github.com/qalam-news/core/internal/modules/auth/attempt"
	"github.com/qalam-news/core/internal/modules/auth/auth"
	"github.com/qalam-news/core/internal/modules/auth/user"
	"github.com/qalam-news/core/internal/modules/backup"
	"github.com/qalam-news/core/internal/modules/content/article"
	"github.com/qalam-news/core/internal/modules/content/video"
	"github.com/qalam-news/core/internal/modules/health"
	"github.com/qalam-news/core/internal/modules/search"
	"github.com/qalam-news/core/internal/modules/settings"
	jwtpkg "github.com/qalam-news/core/internal/pkg/jwt"
	"github.com/qalam-news/core/internal/pkg/markdown"
	"github.com/qalam-news/core/internal/pkg/session"
	"go.uber.org/zap"
)

const (
	loginLimit     = 10
	loginWindow    = time.Minute
	registerLimit  = 5
	registerWindow = time.Hour
)

type services struct {
	users    *user.Service
	tracker  *attempt.Tracker
	auth     *auth.Service
	articles *article.Service
	videos   *video.Service
	search   *search.Service
	ads      *ads.Service
	settings *settings.Service
	backup   *backup.Service
}

func (a *App) buildServices() *services {
	st := a.db.Store
	cfg := a.cfg
	log := a.logger

	var denylist session.Denylist = session.NewMemoryDenylist()
	if a.redis != nil {
		denylist = session.NewRedisDenylist(a.redis)
	}

	users := user.NewService(st, log, user.WithBcryptCost(cfg.Auth.BcryptCost))
	tracker := attempt.NewTracker(st, log, attempt.WithRetention(cfg.Auth.AttemptRetention))
	signer := jwtpkg.New(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	lockout := auth.Lockout{MaxFailures: cfg.Auth.MaxFailedAttempts, Window: cfg.Auth.LockoutWindow}

	articles := article.NewService(st, log)
	videos := video.NewService(st, log)

	var backupOpts []backup.Option
	if cfg.Backup.S3.Enabled() {
		uploader, err := backup.NewS3Uploader(cfg.Backup.S3)
		if err != nil {
			log.Warn("s3 backup upload disabled", zap.Error(err))
		} else {
			backupOpts = append(backupOpts, backup.WithUploader(uploader))
		}
	}

	return &services{
		users:    users,
		tracker:  tracker,
		auth:     auth.NewService(users, signer, tracker, denylist, lockout, log),
		articles: articles,
		videos:   videos,
		search:   search.NewService(articles, videos, log),
		ads:      ads.NewService(st, log),
		settings: settings.NewService(st, log),
		backup:   backup.NewService(st, cfg.Backup.Dir, log, backupOpts...),
	}
}

// newLimiter shares the budget through redis when it is configured.
func (a *App) newLimiter(max int, window time.Duration) middleware.Limiter {
	if a.redis != nil {
		return middleware.NewWindowLimiter(a.redis, max, window)
	}
	return middleware.NewMemoryLimiter(max, window)
}

type routeRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc)
}

func (a *App) registerRoutes(s *services) {
	api := a.router.Group("/api/v1")
	authMW := middleware.Auth(s.auth)
	loginLimiter := middleware.RateLimit(a.newLimiter(loginLimit, loginWindow), "login", loginWindow, a.logger)
	registerLimiter := middleware.RateLimit(a.newLimiter(registerLimit, registerWindow), "register", registerWindow, a.logger)

	deps := map[string]health.Pinger{"database": a.db.Store}
	if a.redis != nil {
		deps["redis"] = a.redis
	}

	renderer := markdown.New()
	registrars := []routeRegistrar{
		auth.NewHandler(s.auth, loginLimiter),
		user.NewHandler(s.users, registerLimiter),
		attempt.NewHandler(s.tracker),
		article.NewHandler(s.articles, renderer, s.auth, a.logger),
		video.NewHandler(s.videos, s.auth, a.logger),
		search.NewHandler(s.search, s.auth),
		ads.NewHandler(s.ads),
		settings.NewHandler(s.settings),
		backup.NewHandler(s.backup),
		health.NewHandler(deps, a.sched, a.LogDir()),
	}
	for _, r := range registrars {
		r.RegisterRoutes(api, authMW)
	}
}
