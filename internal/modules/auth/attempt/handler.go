package attempt

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/qalam-news/core/internal/middleware"
	"github.com/qalam-news/core/internal/pkg/apperr"
	"github.com/qalam-news/core/internal/pkg/pagination"
	"github.com/qalam-news/core/internal/pkg/response"
	"github.com/qalam-news/core/internal/policy"
)

// Handler exposes the login audit to user managers.
type Handler struct {
	tracker *Tracker
}

func NewHandler(tracker *Tracker) *Handler {
	return &Handler{tracker: tracker}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/auth/attempts", authMW, middleware.RequireAction(policy.ActionManageUsers), h.list)
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Username: c.Query("username"),
		Page:     pagination.FromContext(c),
	}
	if raw := c.Query("success"); raw != "" {
		success, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, apperr.Validation("success", "must be a boolean"))
			return
		}
		q.Success = &success
	}
	items, meta, err := h.tracker.List(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, items, meta)
}
