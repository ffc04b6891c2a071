package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/qalam-news/core/internal/middleware"
	"github.com/qalam-news/core/internal/pkg/response"
)

type Handler struct {
	svc     *Service
	limiter gin.HandlerFunc
}

// NewHandler builds the auth handler. limiter guards the login route and may be nil.
func NewHandler(svc *Service, limiter gin.HandlerFunc) *Handler {
	if limiter == nil {
		limiter = func(c *gin.Context) { c.Next() }
	}
	return &Handler{svc: svc, limiter: limiter}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	a := rg.Group("/auth")

	a.POST("/login", h.limiter, h.login)
	a.GET("/session", middleware.OptionalAuth(h.svc), h.session)
	a.POST("/logout", authMW, h.logout)
	a.POST("/refresh", authMW, h.refresh)
	a.GET("/me", authMW, h.me)
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.svc.Authenticate(c.Request.Context(), LoginInput{
		Username:  dto.Username,
		Password:  dto.Password,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

func (h *Handler) session(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		response.OK(c, gin.H{"authenticated": false})
		return
	}
	response.OK(c, gin.H{"authenticated": true, "claims": claims})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), middleware.CurrentClaims(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) refresh(c *gin.Context) {
	result, err := h.svc.Refresh(c.Request.Context(), middleware.CurrentClaims(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.svc.CurrentUser(c.Request.Context(), middleware.CurrentClaims(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u)
}
