package markdown

import (
	"testing"

	"github.com/qalam-news/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderStripsScripts(t *testing.T) {
	r := New()
	html, err := r.Render("# Headline\n\nhello <script>alert(1)</script> **world**")
	require.NoError(t, err)
	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "<strong>world</strong>")
	assert.NotContains(t, html, "<script")
}

func TestRenderEmpty(t *testing.T) {
	html, err := New().Render("   ")
	require.NoError(t, err)
	assert.Empty(t, html)
}

func TestRenderLocalized(t *testing.T) {
	out, err := New().RenderLocalized(models.LocalizedText{EN: "*hi*", AR: "مرحبا", UR: ""})
	require.NoError(t, err)
	assert.Contains(t, out.EN, "<em>hi</em>")
	assert.Contains(t, out.AR, `<div dir="rtl">`)
	assert.Empty(t, out.UR)
}
