package video

import (
	"testing"

	"github.com/qalam-news/core/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestDetectPlatform(t *testing.T) {
	tests := map[string]models.VideoPlatform{
		"https://www.youtube.com/watch?v=abc": models.PlatformYouTube,
		"https://m.youtube.com/watch?v=abc":   models.PlatformYouTube,
		"https://youtu.be/abc":                models.PlatformYouTube,
		"https://vimeo.com/12345":             models.PlatformVimeo,
		"https://player.vimeo.com/video/1":    models.PlatformVimeo,
		"https://fb.watch/xyz":                models.PlatformFacebook,
		"https://www.facebook.com/watch/?v=1": models.PlatformFacebook,
		"https://cdn.example.com/clip.mp4":    models.PlatformOther,
		"::not a url":                         models.PlatformOther,
	}
	for in, want := range tests {
		assert.Equal(t, want, DetectPlatform(in), in)
	}
}
