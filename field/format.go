// Package field converts picked YouTube items into the JSON stored in a CMS
// field value, in either the upstream ("legacy") shape or a flattened
// ("simplified") one, and reads such values back.
package field

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// Sentinel errors for field values.
var (
	ErrInvalidFormat = errors.New("field: invalid data format")
	ErrInvalidKind   = errors.New("field: invalid field kind")
	ErrMalformed     = errors.New("field: malformed field value")
)

// Format is the stored shape of a field value.
type Format string

const (
	FormatSimplified Format = "simplified"
	FormatLegacy     Format = "legacy"
)

// ParseFormat validates s; an empty string means FormatSimplified.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatSimplified:
		return FormatSimplified, nil
	case FormatLegacy:
		return FormatLegacy, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
}

// Kind is the picker a field belongs to.
type Kind string

const (
	KindVideo    Kind = "video"
	KindVideos   Kind = "videos"
	KindPlaylist Kind = "playlist"
)

// ParseKind validates s.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindVideo, KindVideos, KindPlaylist:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Options controls what the simplified shape carries.
type Options struct {
	IncludeTags        bool
	IncludeDescription bool
}

// DefaultOptions includes tags and descriptions.
func DefaultOptions() Options {
	return Options{IncludeTags: true, IncludeDescription: true}
}

// clockRegex reads the time part of an ISO-8601 duration. Days are not
// shown on the clock, and a duration with no time part (a live stream's
// "P0D") has nothing to show.
var clockRegex = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

func clock(iso string) (h, m, s int, ok bool) {
	match := clockRegex.FindStringSubmatch(iso)
	if match == nil {
		return 0, 0, 0, false
	}
	h, _ = strconv.Atoi(match[1])
	m, _ = strconv.Atoi(match[2])
	s, _ = strconv.Atoi(match[3])
	return h, m, s, true
}

// FormatDuration renders the time part of an ISO-8601 duration as H:MM:SS
// or M:SS. Input without a "PT" time part is returned unchanged.
func FormatDuration(iso string) string {
	h, m, s, ok := clock(iso)
	if !ok {
		return iso
	}
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// DurationSeconds returns the seconds FormatDuration displays, or 0.
func DurationSeconds(iso string) int64 {
	h, m, s, _ := clock(iso)
	return int64(h*3600 + m*60 + s)
}

// FormatCount abbreviates a decimal count: 1234567 becomes "1.2M" and 15300
// becomes "15.3K". Non-numeric input is returned unchanged.
func FormatCount(count string) string {
	n, err := strconv.ParseInt(count, 10, 64)
	if err != nil {
		return count
	}
	switch {
	case n >= 1_000_000:
		return strconv.FormatFloat(float64(n)/1_000_000, 'f', 1, 64) + "M"
	case n >= 1_000:
		return strconv.FormatFloat(float64(n)/1_000, 'f', 1, 64) + "K"
	}
	return count
}

// EmbedURL returns the iframe URL of a video.
func EmbedURL(videoID string) string {
	return "https://www.youtube.com/embed/" + videoID
}

// WatchURL returns the watch page of a video.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// PlaylistURL returns the page of a playlist.
func PlaylistURL(playlistID string) string {
	return "https://www.youtube.com/playlist?list=" + playlistID
}

func parseCount(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
