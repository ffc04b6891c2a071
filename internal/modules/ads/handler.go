package ads

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/qalam-news/core/internal/middleware"
	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/pkg/apperr"
	"github.com/qalam-news/core/internal/pkg/pagination"
	"github.com/qalam-news/core/internal/pkg/response"
	"github.com/qalam-news/core/internal/policy"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/ads")
	g.GET("/active", h.live)
	g.POST("/:id/impression", h.impression)
	g.POST("/:id/click", h.click)

	admin := g.Group("", authMW, middleware.RequireAction(policy.ActionManageAds))
	admin.GET("", h.list)
	admin.POST("", h.create)
	admin.GET("/:id", h.get)
	admin.PATCH("/:id", h.update)
	admin.DELETE("/:id", h.delete)
	admin.GET("/:id/stats", h.stats)
}

func parsePlacement(raw string) (models.Placement, error) {
	if raw == "" {
		return "", nil
	}
	p := models.Placement(raw)
	if !p.Valid() {
		return "", apperr.Validation("placement", "must be sidebar or inline")
	}
	return p, nil
}

func (h *Handler) live(c *gin.Context) {
	placement, err := parsePlacement(c.Query("placement"))
	if err != nil {
		response.Error(c, err)
		return
	}
	ads, err := h.svc.Live(c.Request.Context(), placement)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ads)
}

func (h *Handler) impression(c *gin.Context) {
	if err := h.svc.RecordImpression(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) click(c *gin.Context) {
	if err := h.svc.RecordClick(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) list(c *gin.Context) {
	placement, err := parsePlacement(c.Query("placement"))
	if err != nil {
		response.Error(c, err)
		return
	}
	q := ListQuery{Placement: placement, Page: pagination.FromContext(c)}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, apperr.Validation("active", "must be a boolean"))
			return
		}
		q.Active = &active
	}
	ads, meta, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, ads, meta)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ad, err := h.svc.Create(c.Request.Context(), middleware.CurrentUserID(c), dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ad)
}

func (h *Handler) get(c *gin.Context) {
	ad, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ad)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ad, err := h.svc.Update(c.Request.Context(), c.Param("id"), dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ad)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}
