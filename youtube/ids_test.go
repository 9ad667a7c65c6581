package youtube

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"bare id", "dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"bare playlist id of video length", "PLabcdefghi", "", false},
		{"short link with playlist prefix", "https://youtu.be/PLabcdefghi", "PLabcdefghi", true},
		{"watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42", "dQw4w9WgXcQ", true},
		{"watch with list", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PLabc", "dQw4w9WgXcQ", true},
		{"mobile", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"short link", "https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ", true},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"nocookie embed", "https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"v path", "https://www.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"shorts", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"no scheme", "youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"other host", "https://vimeo.com/watch?v=dQw4w9WgXcQ", "", false},
		{"lookalike host", "https://notyoutube.com/watch?v=dQw4w9WgXcQ", "", false},
		{"too short", "https://youtu.be/abc", "", false},
		{"playlist page", "https://www.youtube.com/playlist?list=PLabc", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractVideoID(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractPlaylistID(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"PLrAXtmErZgOeiKm4sgNOknGvNjby9efdf", "PLrAXtmErZgOeiKm4sgNOknGvNjby9efdf", true},
		{"https://www.youtube.com/playlist?list=PLrAXtmErZgOeiKm4sgNOknGvNjby9efdf", "PLrAXtmErZgOeiKm4sgNOknGvNjby9efdf", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=UUSHuAXFkgsw1L7xaCfnd5JJOw", "UUSHuAXFkgsw1L7xaCfnd5JJOw", true},
		{"https://www.youtube.com/playlist?list=XXnotvalid", "", false},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ExtractPlaylistID(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractChannelID(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"UCuAXFkgsw1L7xaCfnd5JJOw", "UCuAXFkgsw1L7xaCfnd5JJOw", true},
		{"https://www.youtube.com/channel/UCuAXFkgsw1L7xaCfnd5JJOw", "UCuAXFkgsw1L7xaCfnd5JJOw", true},
		{"https://www.youtube.com/channel/UCuAXFkgsw1L7xaCfnd5JJOw/videos", "UCuAXFkgsw1L7xaCfnd5JJOw", true},
		{"https://www.youtube.com/channel/UCuAXFkgsw1L7xaCfnd5JJOw?sub_confirmation=1", "UCuAXFkgsw1L7xaCfnd5JJOw", true},
		{"https://www.youtube.com/@handle", "", false},
		{"https://www.youtube.com/channel/UCshort", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ExtractChannelID(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIDValidators(t *testing.T) {
	assert.True(t, IsValidVideoID("dQw4w9WgXcQ"))
	assert.False(t, IsValidVideoID("dQw4w9WgXc"))
	assert.False(t, IsValidVideoID("dQw4w9WgXc!"))

	assert.True(t, IsValidPlaylistID("PLabc_DEF-1"))
	assert.True(t, IsValidPlaylistID("UUSHuAXFkgsw1L7xaCfnd5JJOw"))
	assert.False(t, IsValidPlaylistID("ABabc"))
	assert.False(t, IsValidPlaylistID("PL"))

	assert.True(t, IsValidChannelID("UCuAXFkgsw1L7xaCfnd5JJOw"))
	assert.False(t, IsValidChannelID("UUuAXFkgsw1L7xaCfnd5JJOw"))
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"PT45S", 45 * time.Second},
		{"PT3M", 3 * time.Minute},
		{"PT1H2M3S", time.Hour + 2*time.Minute + 3*time.Second},
		{"P1DT1H", 25 * time.Hour},
		{"PT1.5S", 1500 * time.Millisecond},
		{"P0D", 0},
		{"", 0},
		{"12:34", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDuration(tt.in))
		})
	}
}
