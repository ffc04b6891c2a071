package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/qalam-news/core/internal/middleware"
	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/pkg/apperr"
	"github.com/qalam-news/core/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenVerifier accepts a username as the token of that user.
type tokenVerifier map[string]*policy.Claims

func (v tokenVerifier) Verify(_ context.Context, token string) (*policy.Claims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, apperr.New(apperr.CodeTokenInvalid, "unknown token")
}

type envelope struct {
	Success bool            `json:"success"`
	Code    apperr.Code     `json:"code"`
	Data    json.RawMessage `json:"data"`
}

type httpFixture struct {
	r      *gin.Engine
	svc    *Service
	tokens tokenVerifier
	users  map[string]*models.User
}

func newHTTPFixture(t *testing.T) *httpFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &httpFixture{
		svc:    newTestService(t),
		tokens: tokenVerifier{},
		users:  map[string]*models.User{},
	}
	f.add(t, "chief", models.RoleAdmin, models.PermAll)
	f.add(t, "moderator", models.RoleEditor, models.PermManageUsers, models.PermCreateArticles)
	f.add(t, "writer", models.RoleEditor, models.PermCreateArticles)

	f.r = gin.New()
	NewHandler(f.svc, nil).RegisterRoutes(f.r.Group("/api/v1"), middleware.Auth(f.tokens))
	return f
}

func (f *httpFixture) add(t *testing.T, name string, role models.Role, perms ...models.Permission) {
	t.Helper()
	u, err := f.svc.create(context.Background(), CreateUserDTO{
		Username:    name,
		Email:       name + "@example.com",
		Password:    "password-" + name,
		Role:        role,
		Permissions: perms,
	})
	require.NoError(t, err)
	f.users[name] = u
	f.tokens[name] = &policy.Claims{UserID: u.ID, Role: u.Role, Permissions: u.Permissions}
}

func (f *httpFixture) do(t *testing.T, method, path, token, body string) (int, envelope) {
	t.Helper()
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
	f.r.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func (f *httpFixture) reload(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := f.svc.GetByID(context.Background(), f.users[name].ID)
	require.NoError(t, err)
	return u
}

func TestManagerCannotPromoteThemselves(t *testing.T) {
	f := newHTTPFixture(t)

	code, env := f.do(t, http.MethodPatch, "/api/v1/users/"+f.users["moderator"].ID, "moderator",
		`{"role":"admin","permissions":["all"]}`)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, apperr.CodeForbidden, env.Code)

	got := f.reload(t, "moderator")
	assert.Equal(t, models.RoleEditor, got.Role)
	assert.Equal(t, []models.Permission{models.PermManageUsers, models.PermCreateArticles}, got.Permissions)
}

func TestManagerGrantRules(t *testing.T) {
	f := newHTTPFixture(t)
	writerPath := "/api/v1/users/" + f.users["writer"].ID
	chiefPath := "/api/v1/users/" + f.users["chief"].ID

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"create admin", http.MethodPost, "/api/v1/users",
			`{"username":"boss","email":"boss@example.com","password":"password1","role":"admin"}`, http.StatusForbidden},
		{"create with all", http.MethodPost, "/api/v1/users",
			`{"username":"boss","email":"boss@example.com","password":"password1","role":"editor","permissions":["all"]}`, http.StatusForbidden},
		{"create with permission not held", http.MethodPost, "/api/v1/users",
			`{"username":"boss","email":"boss@example.com","password":"password1","role":"editor","permissions":["delete:videos"]}`, http.StatusForbidden},
		{"create with held permission", http.MethodPost, "/api/v1/users",
			`{"username":"junior","email":"junior@example.com","password":"password1","role":"editor","permissions":["create:articles"]}`, http.StatusCreated},
		{"promote another user to admin", http.MethodPatch, writerPath, `{"role":"admin"}`, http.StatusForbidden},
		{"grant permission not held", http.MethodPatch, writerPath, `{"permissions":["edit:videos"]}`, http.StatusForbidden},
		{"grant held permissions", http.MethodPatch, writerPath, `{"permissions":["create:articles","manage:users"]}`, http.StatusOK},
		{"disable an administrator", http.MethodPatch, chiefPath, `{"active":false}`, http.StatusForbidden},
		{"disable an administrator by route", http.MethodPost, chiefPath + "/disable", "", http.StatusForbidden},
		{"delete an administrator", http.MethodDelete, chiefPath, "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := f.do(t, tt.method, tt.path, "moderator", tt.body)
			assert.Equal(t, tt.want, code)
		})
	}

	assert.Equal(t, models.RoleEditor, f.reload(t, "writer").Role)
	assert.True(t, f.reload(t, "chief").Active)
}

func TestAdminManagesUsers(t *testing.T) {
	f := newHTTPFixture(t)
	writerPath := "/api/v1/users/" + f.users["writer"].ID
	chiefPath := "/api/v1/users/" + f.users["chief"].ID

	code, env := f.do(t, http.MethodPatch, writerPath, "chief", `{"role":"admin","permissions":["all"]}`)
	require.Equal(t, http.StatusOK, code)
	var u models.User
	require.NoError(t, json.Unmarshal(env.Data, &u))
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.Equal(t, []models.Permission{models.PermAll}, u.Permissions)

	code, env = f.do(t, http.MethodPatch, chiefPath, "chief", `{"permissions":[]}`)
	assert.Equal(t, http.StatusForbidden, code, "own grants are fixed")
	assert.Equal(t, apperr.CodeForbidden, env.Code)

	code, env = f.do(t, http.MethodPost, chiefPath+"/disable", "chief", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, apperr.CodeValidation, env.Code)

	code, env = f.do(t, http.MethodDelete, chiefPath, "chief", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, apperr.CodeValidation, env.Code)
	assert.True(t, f.reload(t, "chief").Active)

	code, _ = f.do(t, http.MethodPost, writerPath+"/disable", "chief", "")
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, f.reload(t, "writer").Active)

	code, _ = f.do(t, http.MethodDelete, writerPath, "chief", "")
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = f.do(t, http.MethodGet, writerPath, "chief", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUserAdminRoutesRequireManageUsers(t *testing.T) {
	f := newHTTPFixture(t)

	code, env := f.do(t, http.MethodGet, "/api/v1/users", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, apperr.CodeTokenInvalid, env.Code)

	code, env = f.do(t, http.MethodGet, "/api/v1/users", "writer", "")
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, apperr.CodeForbidden, env.Code)

	code, _ = f.do(t, http.MethodGet, "/api/v1/users", "moderator", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestRegisterAndMe(t *testing.T) {
	f := newHTTPFixture(t)

	code, env := f.do(t, http.MethodPost, "/api/v1/users/register", "",
		`{"username":"reader","email":"reader@example.com","password":"password1"}`)
	require.Equal(t, http.StatusCreated, code)
	var u models.User
	require.NoError(t, json.Unmarshal(env.Data, &u))
	assert.Equal(t, models.RoleViewer, u.Role)
	assert.Empty(t, u.Permissions)
	assert.NotContains(t, string(env.Data), "password")

	f.tokens["reader"] = &policy.Claims{UserID: u.ID, Role: u.Role}
	code, env = f.do(t, http.MethodGet, "/api/v1/users/me", "reader", "")
	require.Equal(t, http.StatusOK, code)
	var me models.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "reader", me.Username)
}
