// Package health exposes liveness, scheduler and log endpoints.
package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qalam-news/core/internal/middleware"
	"github.com/qalam-news/core/internal/pkg/apperr"
	"github.com/qalam-news/core/internal/pkg/cron"
	"github.com/qalam-news/core/internal/pkg/nativelog"
	"github.com/qalam-news/core/internal/pkg/response"
	"github.com/qalam-news/core/internal/policy"
)

const pingTimeout = 2 * time.Second

// Pinger is a dependency whose reachability is reported by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type logItem struct {
	Size     string `json:"size"`
	Filename string `json:"filename"`
	Created  int64  `json:"created"`
}

type Handler struct {
	deps   map[string]Pinger
	sched  *cron.Scheduler
	logDir string
}

// NewHandler reports on deps by name. "database" should always be present.
func NewHandler(deps map[string]Pinger, sched *cron.Scheduler, logDir string) *Handler {
	return &Handler{deps: deps, sched: sched, logDir: logDir}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/health", h.health)

	admin := rg.Group("/health", authMW, middleware.RequireAction(policy.ActionManageSettings))
	admin.GET("/cron", h.cronList)
	admin.POST("/cron/run/:name", h.cronRun)
	admin.GET("/log/list", h.logList)
	admin.GET("/log", h.logRead)
	admin.DELETE("/log", h.logDelete)
}

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	body := gin.H{}
	for name, dep := range h.deps {
		ok := dep.Ping(ctx) == nil
		body[name] = ok
		if !ok {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	body["status"] = status
	c.JSON(code, body)
}

func (h *Handler) cronList(c *gin.Context) {
	items := h.sched.List()
	byName := make(map[string]cron.ListItem, len(items))
	for _, item := range items {
		byName[item.Name] = item
	}
	response.OK(c, byName)
}

func (h *Handler) cronRun(c *gin.Context) {
	if err := h.sched.Run(c.Request.Context(), c.Param("name")); err != nil {
		response.Error(c, apperr.NotFound("job"))
		return
	}
	response.OK(c, gin.H{"message": "job finished"})
}

func (h *Handler) logList(c *gin.Context) {
	entries, err := os.ReadDir(h.logDir)
	if errors.Is(err, os.ErrNotExist) {
		response.OK(c, []logItem{})
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]logItem, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		items = append(items, logItem{
			Size:     formatByteSize(info.Size()),
			Filename: entry.Name(),
			Created:  info.ModTime().UnixMilli(),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Created > items[j].Created })
	response.OK(c, items)
}

func (h *Handler) logPath(c *gin.Context) (string, bool) {
	filename := filepath.Base(strings.TrimSpace(c.Query("filename")))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		response.Error(c, apperr.Validation("filename", "is required"))
		return "", false
	}
	return filepath.Join(h.logDir, filename), true
}

func (h *Handler) logRead(c *gin.Context) {
	path, ok := h.logPath(c)
	if !ok {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		response.Error(c, apperr.NotFound("log file"))
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
}

// DELETE /health/log truncates today's file, which is still being written, and removes older ones.
func (h *Handler) logDelete(c *gin.Context) {
	path, ok := h.logPath(c)
	if !ok {
		return
	}
	today := filepath.Join(h.logDir, nativelog.TodayFilename(time.Now()))
	if filepath.Clean(path) == filepath.Clean(today) {
		if err := os.WriteFile(path, nil, 0o644); err != nil && !errors.Is(err, os.ErrNotExist) {
			response.Error(c, err)
			return
		}
	} else if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func formatByteSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
