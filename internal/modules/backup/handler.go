package backup

import (
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/qalam-news/core/internal/middleware"
	"github.com/qalam-news/core/internal/pkg/apperr"
	"github.com/qalam-news/core/internal/pkg/response"
	"github.com/qalam-news/core/internal/policy"
)

const maxRestoreSize = 256 << 20

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/backups", authMW, middleware.RequireAction(policy.ActionManageSettings))
	g.GET("", h.list)
	g.POST("", h.create)
	g.POST("/restore", h.restore)
	g.GET("/:filename", h.download)
	g.DELETE("/:filename", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// POST /backups
func (h *Handler) create(c *gin.Context) {
	art, err := h.svc.Create(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, art)
}

// POST /backups/restore (multipart field "file")
func (h *Handler) restore(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file")
		return
	}
	if file.Size > maxRestoreSize {
		response.Error(c, apperr.Validation("file", "archive too large"))
		return
	}
	src, err := file.Open()
	if err != nil {
		response.Error(c, err)
		return
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, maxRestoreSize))
	if err != nil {
		response.Error(c, err)
		return
	}
	restored, err := h.svc.Restore(c.Request.Context(), data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, restored)
}

func (h *Handler) download(c *gin.Context) {
	filename := c.Param("filename")
	path, err := h.svc.Path(filename)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.File(path)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Remove(c.Param("filename")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
