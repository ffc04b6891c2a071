package auth

import (
	"time"

	"github.com/qalam-news/core/internal/models"
)

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginInput is one authentication request with its request metadata.
type LoginInput struct {
	Username  string
	Password  string
	IP        string
	UserAgent string
}

// TokenResult is what a successful login or refresh returns.
type TokenResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// Lockout configures the consecutive-failure rule. MaxFailures 0 disables it.
type Lockout struct {
	MaxFailures int
	Window      time.Duration
}

func (l Lockout) enabled() bool { return l.MaxFailures > 0 && l.Window > 0 }
