package lang

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/qalam-news/core/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	tests := map[string]models.Lang{
		"":                  models.LangEN,
		"ar":                models.LangAR,
		"UR":                models.LangUR,
		"ar-SA,en;q=0.5":    models.LangAR,
		"ur-PK":             models.LangUR,
		"en-US,en;q=0.9":    models.LangEN,
		"fr-FR":             models.LangEN,
		"not a language!!!": models.LangEN,
	}
	for in, want := range tests {
		assert.Equal(t, want, Match(in), "input %q", in)
	}
}

func TestFromRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/articles?lang=ur", nil)
	c.Request.Header.Set("Accept-Language", "ar")
	l, ok := FromRequest(c)
	assert.True(t, ok)
	assert.Equal(t, models.LangUR, l)

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/articles", nil)
	c.Request.Header.Set("Accept-Language", "ar-EG")
	l, ok = FromRequest(c)
	assert.True(t, ok)
	assert.Equal(t, models.LangAR, l)

	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/articles", nil)
	l, ok = FromRequest(c)
	assert.False(t, ok)
	assert.Equal(t, models.LangEN, l)
}
