package article

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
	"github.com/qalam-news/core/internal/pkg/markdown"
	"github.com/qalam-news/core/internal/policy"
	"github.com/qalam-news/core/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenVerifier accepts the token "<userID>" for the users it knows.
type tokenVerifier map[string]*policy.Claims

func (v tokenVerifier) Verify(_ context.Context, token string) (*policy.Claims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, apperr.New(apperr.CodeTokenInvalid, "unknown token")
}

var users = tokenVerifier{
	"editor1": {UserID: "editor1", Role: models.RoleEditor, Permissions: []models.Permission{models.PermCreateArticles}},
	"editor2": {UserID: "editor2", Role: models.RoleEditor, Permissions: []models.Permission{models.PermCreateArticles}},
}

const createBody = `{
	"title": {"en": "Rain returns", "ar": "عودة المطر", "ur": "بارش کی واپسی"},
	"description": {"en": "Forecast", "ar": "توقعات", "ur": "پیشگوئی"},
	"body": {"en": "**Heavy** rain", "ar": "مطر **غزير**", "ur": "**تیز** بارش"},
	"category": "weather",
	"tags": ["Rain", "rain", " Climate "]
}`

type envelope struct {
	Success bool            `json:"success"`
	Code    apperr.Code     `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc := NewService(store.NewMemoryStore(), nil)
	NewHandler(svc, markdown.New(), users, nil).RegisterRoutes(r.Group("/api/v1"), middleware.Auth(users))
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
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
	r.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestArticleLifecycleOverHTTP(t *testing.T) {
	r := newRouter()

	w, env := do(t, r, http.MethodPost, "/api/v1/articles", "editor1", createBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created Response
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, models.StateDraft, created.State)
	assert.Equal(t, []string{"rain", "climate"}, created.Tags)
	path := "/api/v1/articles/" + created.ID

	w, env = do(t, r, http.MethodGet, path, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperr.CodeNotFound, env.Code)

	w, _ = do(t, r, http.MethodDelete, path, "editor2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodPost, path+"/publish", "editor1", "")
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodDelete, path, "editor2", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = do(t, r, http.MethodGet, path+"?lang=ar&render=html", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got Response
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.NotNil(t, got.Resolved)
	assert.Equal(t, models.LangAR, got.Resolved.Lang)
	assert.True(t, got.Resolved.RTL)
	assert.Equal(t, "عودة المطر", got.Resolved.Title)
	require.NotNil(t, got.HTML)
	assert.Contains(t, got.HTML.EN, "<strong>Heavy</strong>")
	assert.True(t, strings.HasPrefix(got.HTML.AR, `<div dir="rtl">`))
	assert.EqualValues(t, 1, got.Views)

	w, _ = do(t, r, http.MethodGet, "/api/v1/articles?tag=climate", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodDelete, path, "editor1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCreateRequiresToken(t *testing.T) {
	r := newRouter()
	w, env := do(t, r, http.MethodPost, "/api/v1/articles", "", createBody)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperr.CodeTokenInvalid, env.Code)

	w, env = do(t, r, http.MethodPost, "/api/v1/articles", "editor1", `{"title": {"en": "only english"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperr.CodeValidation, env.Code)
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, normalizeTags([]string{" A", "b", "a", ""}))
	assert.Empty(t, normalizeTags(nil))
}
