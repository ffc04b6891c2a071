// Package markdown renders article bodies to sanitized HTML.
package markdown

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/qalam-news/core/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

// Renderer converts markdown to HTML and strips anything unsafe from the output.
type Renderer struct {
	engine goldmark.Markdown
	policy *bluemonday.Policy
}

func New() *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("dir").Matching(bluemonday.Direction).Globally()
	return &Renderer{
		engine: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Typographer,
			),
			goldmark.WithRendererOptions(
				htmlrenderer.WithHardWraps(),
			),
		),
		policy: policy,
	}
}

// Render returns sanitized HTML for src. Empty input renders to "".
func (r *Renderer) Render(src string) (string, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := r.engine.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return r.policy.Sanitize(buf.String()), nil
}

// RenderLocalized renders every language variant. Arabic and Urdu output is wrapped
// in a right-to-left container.
func (r *Renderer) RenderLocalized(text models.LocalizedText) (models.LocalizedText, error) {
	var out models.LocalizedText
	for _, l := range models.SupportedLangs {
		html, err := r.Render(text.Get(l))
		if err != nil {
			return models.LocalizedText{}, err
		}
		if html != "" && l.IsRTL() {
			html = `<div dir="rtl">` + html + `</div>`
		}
		switch l {
		case models.LangEN:
			out.EN = html
		case models.LangAR:
			out.AR = html
		case models.LangUR:
			out.UR = html
		}
	}
	return out, nil
}
