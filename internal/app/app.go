package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/qalam-news/core/internal/config"
	"github.com/qalam-news/core/internal/database"
	"github.com/qalam-news/core/internal/middleware"
	"github.com/qalam-news/core/internal/modules/auth/attempt"
	pkgcron "github.com/qalam-news/core/internal/pkg/cron"
	"github.com/qalam-news/core/internal/pkg/nativelog"
	pkgredis "github.com/qalam-news/core/internal/pkg/redis"
	"go.uber.org/zap"
)

// App holds all application dependencies.
type App struct {
	cfg     *config.AppConfig
	router  *gin.Engine
	db      *database.Handle
	redis   *pkgredis.Client
	logger  *zap.Logger
	cancel  context.CancelFunc
	sched   *pkgcron.Scheduler
	tracker *attempt.Tracker
}

// New initializes the application: store → Redis → services → routes → cron.
func New(ctx context.Context, logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	db, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	var rc *pkgredis.Client
	if cfg.Redis.URL != "" {
		rc, err = pkgredis.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			_ = db.Close(context.Background())
			return nil, fmt.Errorf("redis: %w", err)
		}
	} else {
		logger.Warn("redis disabled, token denylist and rate limits are per process")
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(corsConfig(cfg)))

	runCtx, cancel := context.WithCancel(context.Background())
	app := &App{
		cfg:    cfg,
		router: router,
		db:     db,
		redis:  rc,
		logger: logger,
		cancel: cancel,
		sched:  pkgcron.New(logger),
	}

	svcs := app.buildServices()
	app.tracker = svcs.tracker
	if err := app.bootstrapAdmin(ctx, svcs); err != nil {
		app.Shutdown(context.Background())
		return nil, err
	}
	app.registerRoutes(svcs)
	registerCronJobs(app.sched, svcs, cfg, logger)
	app.sched.Start(runCtx)

	return app, nil
}

func (a *App) bootstrapAdmin(ctx context.Context, svcs *services) error {
	b := a.cfg.Bootstrap
	if !b.Enabled() {
		return nil
	}
	created, err := svcs.users.EnsureAdmin(ctx, b.Username, b.Email, b.Password)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		a.logger.Info("bootstrap admin created", zap.String("username", b.Username))
	}
	return nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return a.cfg.Addr() }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// LogDir is where the daily log files are written.
func (a *App) LogDir() string { return nativelog.ResolveDir(a.cfg.Paths.Logs) }

// Shutdown stops background jobs, drains pending attempt writes and closes connections.
func (a *App) Shutdown(ctx context.Context) {
	a.cancel()
	a.sched.Wait()
	if a.tracker != nil {
		a.tracker.Wait()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if err := a.db.Close(ctx); err != nil {
		a.logger.Warn("close database", zap.Error(err))
	}
}
