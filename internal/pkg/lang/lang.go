// Package lang picks the content language for a request.
package lang

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/qalam-news/core/internal/models"
	"golang.org/x/text/language"
)

var (
	supported = []language.Tag{language.English, language.Arabic, language.Urdu}
	matcher   = language.NewMatcher(supported)
)

// Match returns the best supported language for an Accept-Language header or
// a bare language code, defaulting to English.
func Match(header string) models.Lang {
	header = strings.TrimSpace(header)
	if header == "" {
		return models.DefaultLang
	}
	if l, ok := models.ParseLang(header); ok {
		return l
	}

	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		tag, err := language.Parse(header)
		if err != nil {
			return models.DefaultLang
		}
		tags = []language.Tag{tag}
	}

	_, idx, conf := matcher.Match(tags...)
	if conf == language.No || idx < 0 || idx >= len(supported) {
		return models.DefaultLang
	}
	base, _ := supported[idx].Base()
	if l, ok := models.ParseLang(base.String()); ok {
		return l
	}
	return models.DefaultLang
}

// FromRequest reads the "lang" query parameter, then Accept-Language.
// The second result is false when the caller expressed no preference.
func FromRequest(c *gin.Context) (models.Lang, bool) {
	if q := c.Query("lang"); q != "" {
		return Match(q), true
	}
	if h := c.GetHeader("Accept-Language"); h != "" {
		return Match(h), true
	}
	return models.DefaultLang, false
}
