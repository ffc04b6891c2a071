package policy

import (
	"fmt"
	"testing"

	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/pkg/apperr"
	"github.com/stretchr/testify/assert"
)

var allActions = []Action{
	ActionRead,
	ActionCreateArticles, ActionEditArticles, ActionDeleteArticles,
	ActionCreateVideos, ActionEditVideos, ActionDeleteVideos,
	ActionManageUsers, ActionManageAds, ActionManageSettings,
}

func claimsFor(id string, role models.Role, perms ...models.Permission) *Claims {
	return &Claims{UserID: id, Role: role, Permissions: perms}
}

func TestAuthorizeAdminAlwaysAllowed(t *testing.T) {
	admin := claimsFor("a1", models.RoleAdmin)
	for _, action := range allActions {
		for _, owner := range []string{"", "a1", "someone-else"} {
			assert.Equal(t, Allow, Authorize(admin, action, owner), "action=%s owner=%q", action, owner)
		}
	}
}

func TestAuthorizeAllPermission(t *testing.T) {
	editor := claimsFor("e1", models.RoleEditor, models.PermAll)
	for _, action := range allActions {
		assert.Equal(t, Allow, Authorize(editor, action, "other"), "action=%s", action)
	}
}

func TestAuthorizeRuleTable(t *testing.T) {
	tests := []struct {
		name   string
		claims *Claims
		action Action
		owner  string
		want   Decision
	}{
		{"anonymous read", nil, ActionRead, "", Allow},
		{"anonymous create", nil, ActionCreateArticles, "", Deny},
		{"anonymous edit own-looking", &Claims{}, ActionEditArticles, "", Deny},
		{"exact permission", claimsFor("e1", models.RoleEditor, models.PermCreateArticles), ActionCreateArticles, "", Allow},
		{"permission for other kind", claimsFor("e1", models.RoleEditor, models.PermCreateArticles), ActionCreateVideos, "", Deny},
		{"owner edits own article", claimsFor("e1", models.RoleEditor), ActionEditArticles, "e1", Allow},
		{"owner deletes own video", claimsFor("v1", models.RoleViewer), ActionDeleteVideos, "v1", Allow},
		{"owner cannot create by ownership", claimsFor("e1", models.RoleEditor), ActionCreateArticles, "e1", Deny},
		{"owner rule does not cover users", claimsFor("e1", models.RoleEditor), ActionManageUsers, "e1", Deny},
		{"non owner edit", claimsFor("e1", models.RoleEditor), ActionEditArticles, "e2", Deny},
		{"edit permission on others", claimsFor("e1", models.RoleEditor, models.PermEditArticles), ActionEditArticles, "e2", Allow},
		{"manage users permission", claimsFor("m1", models.RoleEditor, models.PermManageUsers), ActionManageUsers, "", Allow},
		{"ads need admin", claimsFor("e1", models.RoleEditor, models.PermManageUsers, models.PermEditArticles), ActionManageAds, "", Deny},
		{"settings denied for editor", claimsFor("e1", models.RoleEditor, models.PermManageUsers), ActionManageSettings, "", Deny},
		{"empty owner never matches", claimsFor("e1", models.RoleEditor), ActionEditVideos, "", Deny},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorize(tt.claims, tt.action, tt.owner))
		})
	}
}

func TestAuthorizeEditorScenario(t *testing.T) {
	editor1 := claimsFor("editor1", models.RoleEditor, models.PermCreateArticles)

	assert.Equal(t, Deny, Authorize(editor1, ActionDeleteArticles, "editor2"))
	assert.Equal(t, Allow, Authorize(editor1, ActionDeleteArticles, "editor1"))

	err := Require(editor1, ActionDeleteArticles, "editor2")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.NoError(t, Require(editor1, ActionDeleteArticles, "editor1"))
}

func TestAuthorizeViewerNeverGainsCapabilities(t *testing.T) {
	viewer := claimsFor("v1", models.RoleViewer)
	for _, action := range allActions {
		want := Deny
		if action == ActionRead {
			want = Allow
		}
		assert.Equal(t, want, Authorize(viewer, action, "other"), fmt.Sprintf("action=%s", action))
	}
}

func TestContentAction(t *testing.T) {
	assert.Equal(t, ActionCreateArticles, ContentAction(VerbCreate, models.KindArticle))
	assert.Equal(t, ActionEditVideos, ContentAction(VerbEdit, models.KindVideo))
	assert.Equal(t, ActionDeleteArticles, ContentAction(VerbDelete, models.KindArticle))
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "deny", Deny.String())
}

func TestIsSuperuser(t *testing.T) {
	var anonymous *Claims
	assert.False(t, anonymous.IsSuperuser())
	assert.True(t, (&Claims{Role: models.RoleAdmin}).IsSuperuser())
	assert.True(t, (&Claims{Role: models.RoleViewer, Permissions: []models.Permission{models.PermAll}}).IsSuperuser())
	assert.False(t, (&Claims{Role: models.RoleEditor, Permissions: []models.Permission{models.PermManageUsers}}).IsSuperuser())
}
