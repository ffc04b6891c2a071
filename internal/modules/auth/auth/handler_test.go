package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/qalam-news/core/internal/middleware"
	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(f.svc, nil).RegisterRoutes(r.Group("/api/v1"), middleware.Auth(f.svc))
	return r
}

func serve(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	f := newFixture(t, Lockout{})
	f.createUser(t, "active", models.RoleViewer, true)
	f.createUser(t, "disabled", models.RoleViewer, false)
	r := f.router()

	notFound := serve(r, http.MethodPost, "/api/v1/auth/login", "", `{"username":"ghost","password":"password-ghost"}`)
	disabled := serve(r, http.MethodPost, "/api/v1/auth/login", "", `{"username":"disabled","password":"password-disabled"}`)
	wrong := serve(r, http.MethodPost, "/api/v1/auth/login", "", `{"username":"active","password":"wrong-password"}`)

	for _, w := range []*httptest.ResponseRecorder{notFound, disabled, wrong} {
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	assert.Equal(t, notFound.Body.String(), disabled.Body.String())
	assert.Equal(t, notFound.Body.String(), wrong.Body.String())

	var body struct {
		Success bool        `json:"success"`
		Code    apperr.Code `json:"code"`
	}
	require.NoError(t, json.Unmarshal(wrong.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, apperr.CodeInvalidCredentials, body.Code)
}

func TestLoginLogoutOverHTTP(t *testing.T) {
	f := newFixture(t, Lockout{})
	u := f.createUser(t, "reporter", models.RoleEditor, true, models.PermCreateArticles)
	r := f.router()

	w := serve(r, http.MethodPost, "/api/v1/auth/login", "", `{"username":"Reporter","password":"password-reporter"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Data TokenResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.Data.Token)
	assert.Equal(t, u.ID, login.Data.User.ID)
	assert.NotContains(t, w.Body.String(), "password-reporter")

	token := login.Data.Token
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/auth/me", token, "").Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodPost, "/api/v1/auth/logout", token, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/v1/auth/me", token, "").Code)

	w = serve(r, http.MethodPost, "/api/v1/auth/login", "", `{"username":"reporter"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
