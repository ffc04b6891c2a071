package content

import (
	"github.com/gin-gonic/gin"
	"github.com/qalam-news/core/internal/middleware"
	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/pkg/apperr"
	"github.com/qalam-news/core/internal/pkg/pagination"
	"github.com/qalam-news/core/internal/pkg/response"
	"github.com/qalam-news/core/internal/store"
	"go.uber.org/zap"
)

// Adapter supplies the kind-specific parts of the HTTP layer.
type Adapter[T any, P Document[T]] interface {
	// Decode binds a create request body.
	Decode(c *gin.Context) (P, error)
	// Patch binds an update request body into a function applied to the stored item.
	Patch(c *gin.Context) (func(P) error, error)
	// Filter reads kind-specific list filters from the query string.
	Filter(c *gin.Context) (store.Filter, error)
	// Present shapes an item for the response.
	Present(c *gin.Context, item P) (interface{}, error)
}

// Handler serves one content kind under its route prefix.
type Handler[T any, P Document[T]] struct {
	prefix  string
	svc     *Service[T, P]
	adapter Adapter[T, P]
	verify  middleware.TokenVerifier
	logger  *zap.Logger
}

func NewHandler[T any, P Document[T]](prefix string, svc *Service[T, P], adapter Adapter[T, P], verify middleware.TokenVerifier, logger *zap.Logger) *Handler[T, P] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler[T, P]{prefix: prefix, svc: svc, adapter: adapter, verify: verify, logger: logger}
}

func (h *Handler[T, P]) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group(h.prefix)

	public := g.Group("", middleware.OptionalAuth(h.verify))
	public.GET("", h.list)
	public.GET("/:id", h.get)

	authed := g.Group("", authMW)
	authed.POST("", h.create)
	authed.PUT("/:id", h.update)
	authed.PATCH("/:id", h.update)
	authed.POST("/:id/publish", h.publish)
	authed.POST("/:id/unpublish", h.unpublish)
	authed.DELETE("/:id", h.delete)
}

func (h *Handler[T, P]) list(c *gin.Context) {
	q := ListQuery{
		State:     models.ContentState(c.Query("state")),
		CreatedBy: c.Query("createdBy"),
		Page:      pagination.FromContext(c),
	}
	if q.State != "" && !q.State.Valid() {
		response.Error(c, apperr.Validation("state", "must be draft or published"))
		return
	}
	extra, err := h.adapter.Filter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	q.Extra = extra

	items, meta, err := h.svc.List(c.Request.Context(), middleware.CurrentClaims(c), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]interface{}, 0, len(items))
	for _, item := range items {
		v, err := h.adapter.Present(c, item)
		if err != nil {
			response.Error(c, err)
			return
		}
		out = append(out, v)
	}
	response.Paged(c, out, meta)
}

func (h *Handler[T, P]) get(c *gin.Context) {
	item, err := h.svc.Get(c.Request.Context(), middleware.CurrentClaims(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if item.LifecycleState() == models.StatePublished {
		if err := h.svc.IncrementViews(c.Request.Context(), item.Meta().ID); err != nil {
			h.logger.Warn("increment views failed", zap.String("id", item.Meta().ID), zap.Error(err))
		} else {
			item.Meta().Views++
		}
	}
	h.present(c, item, response.OK)
}

func (h *Handler[T, P]) create(c *gin.Context) {
	item, err := h.adapter.Decode(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	created, err := h.svc.Create(c.Request.Context(), middleware.CurrentClaims(c), item)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.present(c, created, response.Created)
}

func (h *Handler[T, P]) update(c *gin.Context) {
	apply, err := h.adapter.Patch(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	updated, err := h.svc.Update(c.Request.Context(), middleware.CurrentClaims(c), c.Param("id"), apply)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.present(c, updated, response.OK)
}

func (h *Handler[T, P]) publish(c *gin.Context)   { h.setState(c, models.StatePublished) }
func (h *Handler[T, P]) unpublish(c *gin.Context) { h.setState(c, models.StateDraft) }

func (h *Handler[T, P]) setState(c *gin.Context, state models.ContentState) {
	item, err := h.svc.SetState(c.Request.Context(), middleware.CurrentClaims(c), c.Param("id"), state)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.present(c, item, response.OK)
}

func (h *Handler[T, P]) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentClaims(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler[T, P]) present(c *gin.Context, item P, send func(*gin.Context, interface{})) {
	v, err := h.adapter.Present(c, item)
	if err != nil {
		response.Error(c, err)
		return
	}
	send(c, v)
}

// BindJSON binds the request body, mapping binding failures to ValidationError.
func BindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperr.Validation("body", err.Error())
	}
	return nil
}
