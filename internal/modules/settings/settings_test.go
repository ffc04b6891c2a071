package settings

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
	"github.com/qalam-news/core/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestUpsertCreatesThenUpdates(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), nil)
	ctx := context.Background()

	created, err := svc.Upsert(ctx, " Site.Banner ", UpsertDTO{Value: "hello"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "site.banner", created.Key)
	assert.True(t, created.Enabled)

	updated, err := svc.Upsert(ctx, "site.banner", UpsertDTO{Value: "bye", Enabled: boolPtr(false)}, "admin2")
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	got, err := svc.Get(ctx, "site.banner")
	require.NoError(t, err)
	assert.Equal(t, "bye", got.Value)
	assert.False(t, got.Enabled)
	assert.Equal(t, "admin2", got.UpdatedBy)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestKeyValidation(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), nil)
	_, err := svc.Upsert(context.Background(), "bad key!", UpsertDTO{Value: 1}, "admin")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPublicOnlyEnabledAndPlainValues(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), nil)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, "breaking", UpsertDTO{Value: map[string]interface{}{"text": "alert", "langs": []interface{}{"en", "ar"}}}, "admin")
	require.NoError(t, err)
	_, err = svc.Upsert(ctx, "hidden", UpsertDTO{Value: true, Enabled: boolPtr(false)}, "admin")
	require.NoError(t, err)

	public, err := svc.Public(ctx)
	require.NoError(t, err)
	require.Contains(t, public, "breaking")
	assert.NotContains(t, public, "hidden")
	assert.Equal(t, map[string]interface{}{"text": "alert", "langs": []interface{}{"en", "ar"}}, public["breaking"])

	_, err = svc.Upsert(ctx, "hidden", UpsertDTO{Value: true, Enabled: boolPtr(true)}, "admin")
	require.NoError(t, err)
	public, err = svc.Public(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, public["hidden"])

	require.NoError(t, svc.Delete(ctx, "breaking"))
	public, err = svc.Public(ctx)
	require.NoError(t, err)
	assert.NotContains(t, public, "breaking")
}

func newRouter(svc *Service, claims *policy.Claims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	authMW := func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ContextKeyClaims, claims)
		}
		c.Next()
	}
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"), authMW)
	return r
}

func TestHandlerRequiresManageSettings(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), nil)
	editor := &policy.Claims{UserID: "e1", Role: models.RoleEditor, Permissions: []models.Permission{models.PermManageUsers}}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings/theme", strings.NewReader(`{"value":"dark"}`))
	req.Header.Set("Content-Type", "application/json")
	newRouter(svc, editor).ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := &policy.Claims{UserID: "a1", Role: models.RoleAdmin}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/api/v1/settings/theme", strings.NewReader(`{"value":"dark"}`))
	req.Header.Set("Content-Type", "application/json")
	newRouter(svc, admin).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	newRouter(svc, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/settings/public", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "dark", body.Data["theme"])
}
