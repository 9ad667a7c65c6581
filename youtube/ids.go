package youtube

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	videoIDRegex    = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	playlistIDRegex = regexp.MustCompile(`^(PL|UU|LL|RD|OL|FL)[A-Za-z0-9_-]+$`)
	channelIDRegex  = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)
	durationRegex   = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)
)

// IsValidVideoID reports whether id looks like an 11 character video ID.
func IsValidVideoID(id string) bool {
	return videoIDRegex.MatchString(id)
}

// IsValidPlaylistID reports whether id carries a known playlist prefix.
func IsValidPlaylistID(id string) bool {
	return playlistIDRegex.MatchString(id)
}

// IsValidChannelID reports whether id is a UC channel ID.
func IsValidChannelID(id string) bool {
	return channelIDRegex.MatchString(id)
}

// ExtractVideoID returns the video ID from a watch, youtu.be, embed, /v/
// or /shorts/ URL. A bare video ID is returned as is unless it also reads
// as a playlist ID, in which case it is left to ExtractPlaylistID.
func ExtractVideoID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if IsValidVideoID(raw) {
		if IsValidPlaylistID(raw) {
			return "", false
		}
		return raw, true
	}

	u, ok := parseYouTubeURL(raw)
	if !ok {
		return "", false
	}

	var id string
	switch {
	case hostIs(u.Host, "youtu.be"):
		id = firstSegment(u.Path)
	case u.Path == "/watch":
		id = u.Query().Get("v")
	default:
		for _, prefix := range []string{"/embed/", "/v/", "/shorts/", "/live/"} {
			if rest, found := strings.CutPrefix(u.Path, prefix); found {
				id = firstSegment(rest)
				break
			}
		}
	}

	if !IsValidVideoID(id) {
		return "", false
	}
	return id, true
}

// ExtractPlaylistID returns the list= parameter of a YouTube URL. A bare
// playlist ID is returned as is.
func ExtractPlaylistID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if IsValidPlaylistID(raw) {
		return raw, true
	}
	u, ok := parseYouTubeURL(raw)
	if !ok {
		return "", false
	}
	id := u.Query().Get("list")
	if !IsValidPlaylistID(id) {
		return "", false
	}
	return id, true
}

// ExtractChannelID returns the channel ID of a /channel/UC... URL. A bare
// channel ID is returned as is.
func ExtractChannelID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if IsValidChannelID(raw) {
		return raw, true
	}
	u, ok := parseYouTubeURL(raw)
	if !ok {
		return "", false
	}
	rest, found := strings.CutPrefix(u.Path, "/channel/")
	if !found {
		return "", false
	}
	id := firstSegment(rest)
	if !IsValidChannelID(id) {
		return "", false
	}
	return id, true
}

func parseYouTubeURL(raw string) (*url.URL, bool) {
	if raw == "" {
		return nil, false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	if !hostIs(u.Host, "youtube.com") && !hostIs(u.Host, "youtu.be") && !hostIs(u.Host, "youtube-nocookie.com") {
		return nil, false
	}
	return u, true
}

// hostIs matches domain and any of its subdomains (www., m., music.).
func hostIs(host, domain string) bool {
	host = strings.ToLower(host)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func firstSegment(p string) string {
	p = strings.TrimPrefix(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return p
}

// ParseDuration converts an ISO-8601 duration such as "PT1H2M3S" into a
// time.Duration. Unparseable input yields 0.
func ParseDuration(iso string) time.Duration {
	m := durationRegex.FindStringSubmatch(iso)
	if m == nil {
		return 0
	}
	var d time.Duration
	if m[1] != "" {
		n, _ := strconv.Atoi(m[1])
		d += time.Duration(n) * 24 * time.Hour
	}
	if m[2] != "" {
		n, _ := strconv.Atoi(m[2])
		d += time.Duration(n) * time.Hour
	}
	if m[3] != "" {
		n, _ := strconv.Atoi(m[3])
		d += time.Duration(n) * time.Minute
	}
	if m[4] != "" {
		s, _ := strconv.ParseFloat(m[4], 64)
		d += time.Duration(s * float64(time.Second))
	}
	return d
}
