package models

import (
	"strings"

	"github.com/qalam-news/core/internal/pkg/apperr"
)

// Lang is one of the supported content languages.
type Lang string

const (
	LangEN Lang = "en"
	LangAR Lang = "ar"
	LangUR Lang = "ur"
)

// DefaultLang is used when a requested translation is missing.
const DefaultLang = LangEN

// SupportedLangs in display order.
var SupportedLangs = []Lang{LangEN, LangAR, LangUR}

// ParseLang returns the supported language named by s.
func ParseLang(s string) (Lang, bool) {
	switch Lang(strings.ToLower(strings.TrimSpace(s))) {
	case LangEN:
		return LangEN, true
	case LangAR:
		return LangAR, true
	case LangUR:
		return LangUR, true
	}
	return "", false
}

// IsRTL reports whether the language is written right to left.
func (l Lang) IsRTL() bool { return l == LangAR || l == LangUR }

// LocalizedText holds one string per supported language.
type LocalizedText struct {
	EN string `json:"en" bson:"en"`
	AR string `json:"ar" bson:"ar"`
	UR string `json:"ur" bson:"ur"`
}

// Get returns the exact translation for lang without fallback.
func (t LocalizedText) Get(lang Lang) string {
	switch lang {
	case LangAR:
		return t.AR
	case LangUR:
		return t.UR
	default:
		return t.EN
	}
}

// Resolve returns the translation for lang, falling back to English when it is blank.
func (t LocalizedText) Resolve(lang Lang) string {
	if v := strings.TrimSpace(t.Get(lang)); v != "" {
		return v
	}
	return t.EN
}

// Trimmed returns a copy with surrounding whitespace removed from every variant.
func (t LocalizedText) Trimmed() LocalizedText {
	return LocalizedText{
		EN: strings.TrimSpace(t.EN),
		AR: strings.TrimSpace(t.AR),
		UR: strings.TrimSpace(t.UR),
	}
}

// Validate requires every language variant to be present.
func (t LocalizedText) Validate(field string) error {
	for _, lang := range SupportedLangs {
		if strings.TrimSpace(t.Get(lang)) == "" {
			return apperr.Validation(field+"."+string(lang), "is required")
		}
	}
	return nil
}

// IsZero reports whether every variant is blank.
func (t LocalizedText) IsZero() bool {
	return strings.TrimSpace(t.EN) == "" && strings.TrimSpace(t.AR) == "" && strings.TrimSpace(t.UR) == ""
}
