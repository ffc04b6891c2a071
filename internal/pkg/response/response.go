package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/qalam-news/core/internal/pkg/apperr"
)

// Pagination metadata returned with paginated responses.
type Pagination struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	TotalPage   int   `json:"total_page"`
	Size        int   `json:"size"`
	HasNextPage bool  `json:"has_next_page"`
}

// Body is the envelope every endpoint answers with.
type Body struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Code       apperr.Code `json:"code,omitempty"`
	Message    string      `json:"message,omitempty"`
	Field      string      `json:"field,omitempty"`
}

// Message returned for every credential failure, whatever the underlying reason.
const invalidCredentialsMessage = "Invalid username or password"

// OK sends a 200 response.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Paged sends a paginated response.
func Paged(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data, Pagination: &pagination})
}

// Created sends a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends a 400 validation response.
func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, Body{Code: apperr.CodeValidation, Message: message})
}

// Unauthorized sends a 401 response for a missing or unusable token.
func Unauthorized(c *gin.Context) {
	abort(c, http.StatusUnauthorized, Body{Code: apperr.CodeTokenInvalid, Message: "Authentication required"})
}

// Forbidden sends a 403 response.
func Forbidden(c *gin.Context) {
	abort(c, http.StatusForbidden, Body{Code: apperr.CodeForbidden, Message: "You do not have permission to perform this action"})
}

// NotFound sends a 404 response.
func NotFound(c *gin.Context) {
	abort(c, http.StatusNotFound, Body{Code: apperr.CodeNotFound, Message: "Not Found"})
}

// TooManyRequests sends a 429 response.
func TooManyRequests(c *gin.Context) {
	abort(c, http.StatusTooManyRequests, Body{Code: "RATE_LIMITED", Message: "Too many requests"})
}

// Error maps err onto its external status and envelope. The error is attached to
// the gin context so the request logger records the precise cause.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)
	status, body := Describe(err)
	abort(c, status, body)
}

// Describe returns the status and envelope for err without writing anything.
func Describe(err error) (int, Body) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, Body{Code: apperr.CodeInternal, Message: "Internal server error"}
	}

	switch e.Code {
	case apperr.CodeUserNotFound, apperr.CodeAccountDisabled, apperr.CodeInvalidCredentials:
		return http.StatusUnauthorized, Body{Code: apperr.CodeInvalidCredentials, Message: invalidCredentialsMessage}
	case apperr.CodeAccountLocked:
		return http.StatusLocked, Body{Code: e.Code, Message: "Account temporarily locked after repeated failed logins"}
	case apperr.CodeTokenExpired:
		return http.StatusUnauthorized, Body{Code: e.Code, Message: "Token expired"}
	case apperr.CodeTokenInvalid:
		return http.StatusUnauthorized, Body{Code: e.Code, Message: "Invalid token"}
	case apperr.CodeForbidden:
		return http.StatusForbidden, Body{Code: e.Code, Message: "You do not have permission to perform this action"}
	case apperr.CodeDuplicateEntry:
		return http.StatusConflict, Body{Code: e.Code, Message: messageOr(e, "Duplicate entry"), Field: e.Field}
	case apperr.CodeValidation:
		return http.StatusBadRequest, Body{Code: e.Code, Message: messageOr(e, "Invalid input"), Field: e.Field}
	case apperr.CodeNotFound:
		return http.StatusNotFound, Body{Code: e.Code, Message: messageOr(e, "Not Found")}
	default:
		return http.StatusInternalServerError, Body{Code: apperr.CodeInternal, Message: "Internal server error"}
	}
}

func messageOr(e *apperr.Error, fallback string) string {
	if e.Message != "" {
		return e.Message
	}
	return fallback
}

func abort(c *gin.Context, status int, body Body) {
	body.Success = false
	c.AbortWithStatusJSON(status, body)
}
