package app

import (
	"context"
	"time"

	"github.com/qalam-news/core/internal/config"
	pkgcron "github.com/qalam-news/core/internal/pkg/cron"
	"go.uber.org/zap"
)

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, svcs *services, cfg *config.AppConfig, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:        "purge_login_attempts",
		Description: "Delete login attempts older than the retention period",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			n, err := svcs.tracker.Purge(ctx)
			if err != nil {
				return err
			}
			cronLogger.Info("login attempts purged", zap.Int64("deleted", n))
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "backup",
		Description: "Export every collection and upload when s3 is configured",
		Interval:    cfg.Backup.Interval,
		Fn: func(ctx context.Context) error {
			_, err := svcs.backup.Create(ctx)
			return err
		},
	})
}
