// Package ytfake serves a small in-memory imitation of the YouTube Data API
// v3 (search, videos, playlists, playlistItems) for tests.
package ytfake

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	yt "google.golang.org/api/youtube/v3"
)

// Endpoint names accepted by Calls, Fail and LastQuery.
const (
	Search        = "search"
	Videos        = "videos"
	Playlists     = "playlists"
	PlaylistItems = "playlistItems"
)

// Video describes a fake video.
type Video struct {
	ID           string
	ChannelID    string
	ChannelTitle string
	Title        string
	Description  string
	Tags         []string
	// Duration is ISO-8601, e.g. "PT45S".
	Duration    string
	PublishedAt time.Time
	Views       uint64
	Likes       uint64
	Comments    uint64
}

// Playlist describes a fake playlist.
type Playlist struct {
	ID           string
	ChannelID    string
	ChannelTitle string
	Title        string
	Description  string
	ItemCount    int64
	PublishedAt  time.Time
}

type failure struct {
	status  int
	reason  string
	message string
	times   int
}

// Server is a fake Data API. The zero value is not usable; call New.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	videos        map[string]Video
	videoOrder    []string
	playlists     map[string]Playlist
	playlistOrder []string
	items         map[string][]string
	calls         map[string]int
	queries       map[string]url.Values
	failures      map[string]*failure
	keys          map[string]int
}

// New starts a fake server. Close it when done.
func New() *Server {
	s := &Server{
		videos:    make(map[string]Video),
		playlists: make(map[string]Playlist),
		items:     make(map[string][]string),
		calls:     make(map[string]int),
		queries:   make(map[string]url.Values),
		failures:  make(map[string]*failure),
		keys:      make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/search", s.handle(Search, s.search))
	mux.HandleFunc("/youtube/v3/videos", s.handle(Videos, s.listVideos))
	mux.HandleFunc("/youtube/v3/playlists", s.handle(Playlists, s.listPlaylists))
	mux.HandleFunc("/youtube/v3/playlistItems", s.handle(PlaylistItems, s.listPlaylistItems))
	s.Server = httptest.NewServer(mux)
	return s
}

// Endpoint is the base URL to hand to option.WithEndpoint.
func (s *Server) Endpoint() string {
	return s.URL + "/"
}

// AddVideos registers videos. Search returns them in insertion order.
func (s *Server) AddVideos(videos ...Video) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range videos {
		if _, ok := s.videos[v.ID]; !ok {
			s.videoOrder = append(s.videoOrder, v.ID)
		}
		s.videos[v.ID] = v
	}
}

// RemoveVideo makes a video disappear from videos.list while search keeps
// returning it, like a freshly deleted or private video.
func (s *Server) RemoveVideo(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.videos, id)
}

// AddPlaylists registers playlists.
func (s *Server) AddPlaylists(playlists ...Playlist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range playlists {
		if _, ok := s.playlists[p.ID]; !ok {
			s.playlistOrder = append(s.playlistOrder, p.ID)
		}
		s.playlists[p.ID] = p
	}
}

// SetPlaylistItems sets the video IDs of a playlist, e.g. a UUSH Shorts
// playlist. Playlists without items return 404 playlistNotFound.
func (s *Server) SetPlaylistItems(playlistID string, videoIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[playlistID] = append([]string(nil), videoIDs...)
}

// Fail makes the next times calls to endpoint fail with status and reason.
// times <= 0 fails every call until Recover.
func (s *Server) Fail(endpoint string, status int, reason string, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[endpoint] = &failure{
		status:  status,
		reason:  reason,
		message: http.StatusText(status),
		times:   times,
	}
}

// Recover clears a failure set by Fail.
func (s *Server) Recover(endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, endpoint)
}

// Calls returns how many requests reached endpoint.
func (s *Server) Calls(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[endpoint]
}

// LastQuery returns the query of the most recent request to endpoint.
func (s *Server) LastQuery(endpoint string) url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[endpoint]
}

// KeyCalls returns how many requests carried the API key.
func (s *Server) KeyCalls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key]
}

type handlerFunc func(q url.Values) (any, *failure)

func (s *Server) handle(endpoint string, fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		s.mu.Lock()
		s.calls[endpoint]++
		s.queries[endpoint] = q
		s.keys[q.Get("key")]++
		f := s.failures[endpoint]
		if f != nil && f.times > 0 {
			f.times--
			if f.times == 0 {
				delete(s.failures, endpoint)
			}
		}
		s.mu.Unlock()

		if q.Get("key") == "" {
			f = &failure{status: http.StatusForbidden, reason: "forbidden", message: "The request is missing a valid API key."}
		}
		if f != nil {
			writeError(w, f)
			return
		}

		s.mu.Lock()
		body, ferr := fn(q)
		s.mu.Unlock()
		if ferr != nil {
			writeError(w, ferr)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, f *failure) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    f.status,
			"message": f.message,
			"errors": []map[string]string{{
				"domain":  "youtube",
				"reason":  f.reason,
				"message": f.message,
			}},
		},
	})
}

// multi reads a repeated or comma separated parameter.
func multi(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// window applies pageToken/maxResults paging to n items. Tokens are
// "CAUQAA"-style opaque strings in the real API; here they encode offsets.
func window(q url.Values, n int) (start, end int, pi *yt.PageInfo, next, prev string) {
	size := 5
	if m, err := strconv.Atoi(q.Get("maxResults")); err == nil && m > 0 {
		size = m
	}
	if tok := q.Get("pageToken"); tok != "" {
		start, _ = strconv.Atoi(strings.TrimPrefix(tok, "OFF"))
	}
	start = min(max(start, 0), n)
	end = min(start+size, n)
	if end < n {
		next = "OFF" + strconv.Itoa(end)
	}
	if start > 0 {
		prev = "OFF" + strconv.Itoa(max(start-size, 0))
	}
	return start, end, &yt.PageInfo{TotalResults: int64(n), ResultsPerPage: int64(size)}, next, prev
}

func (s *Server) search(q url.Values) (any, *failure) {
	channel := q.Get("channelId")
	term := strings.ToLower(q.Get("q"))
	resp := &yt.SearchListResponse{Kind: "youtube#searchListResponse", Items: []*yt.SearchResult{}}

	switch q.Get("type") {
	case "playlist":
		var matched []Playlist
		for _, id := range s.playlistOrder {
			p, ok := s.playlists[id]
			if !ok || (channel != "" && p.ChannelID != channel) {
				continue
			}
			if term != "" && !strings.Contains(strings.ToLower(p.Title), term) {
				continue
			}
			matched = append(matched, p)
		}
		start, end, pi, next, prev := window(q, len(matched))
		for _, p := range matched[start:end] {
			resp.Items = append(resp.Items, &yt.SearchResult{
				Kind: "youtube#searchResult",
				Id:   &yt.ResourceId{Kind: "youtube#playlist", PlaylistId: p.ID},
				Snippet: &yt.SearchResultSnippet{
					ChannelId:   p.ChannelID,
					Title:       p.Title,
					PublishedAt: p.PublishedAt.Format(time.RFC3339),
				},
			})
		}
		resp.PageInfo, resp.NextPageToken, resp.PrevPageToken = pi, next, prev

	default:
		short := q.Get("videoDuration") == "short"
		var matched []Video
		// Search keeps hits that videos.list no longer returns; order
		// follows the original registration.
		for _, id := range s.videoOrder {
			v, ok := s.videos[id]
			if !ok {
				v = Video{ID: id, ChannelID: channel}
			}
			if channel != "" && v.ChannelID != channel {
				continue
			}
			if term != "" && !strings.Contains(strings.ToLower(v.Title), term) {
				continue
			}
			if short && ok && parseSeconds(v.Duration) >= 240 {
				continue
			}
			matched = append(matched, v)
		}
		start, end, pi, next, prev := window(q, len(matched))
		for _, v := range matched[start:end] {
			resp.Items = append(resp.Items, &yt.SearchResult{
				Kind: "youtube#searchResult",
				Id:   &yt.ResourceId{Kind: "youtube#video", VideoId: v.ID},
				Snippet: &yt.SearchResultSnippet{
					ChannelId: v.ChannelID,
					Title:     v.Title,
				},
			})
		}
		resp.PageInfo, resp.NextPageToken, resp.PrevPageToken = pi, next, prev
	}
	return resp, nil
}

func (s *Server) listVideos(q url.Values) (any, *failure) {
	ids := multi(q, "id")
	resp := &yt.VideoListResponse{Kind: "youtube#videoListResponse", Items: []*yt.Video{}}
	// The real API does not promise request order; reverse it so callers
	// have to restore it.
	for i := len(ids) - 1; i >= 0; i-- {
		if v, ok := s.videos[ids[i]]; ok {
			resp.Items = append(resp.Items, toVideo(v))
		}
	}
	resp.PageInfo = &yt.PageInfo{TotalResults: int64(len(resp.Items)), ResultsPerPage: int64(len(resp.Items))}
	return resp, nil
}

func (s *Server) listPlaylists(q url.Values) (any, *failure) {
	resp := &yt.PlaylistListResponse{Kind: "youtube#playlistListResponse", Items: []*yt.Playlist{}}

	if ids := multi(q, "id"); len(ids) > 0 {
		for i := len(ids) - 1; i >= 0; i-- {
			if p, ok := s.playlists[ids[i]]; ok {
				resp.Items = append(resp.Items, toPlaylist(p))
			}
		}
		resp.PageInfo = &yt.PageInfo{TotalResults: int64(len(resp.Items)), ResultsPerPage: int64(len(resp.Items))}
		return resp, nil
	}

	channel := q.Get("channelId")
	var matched []Playlist
	for _, id := range s.playlistOrder {
		if p, ok := s.playlists[id]; ok && p.ChannelID == channel {
			matched = append(matched, p)
		}
	}
	start, end, pi, next, prev := window(q, len(matched))
	for _, p := range matched[start:end] {
		resp.Items = append(resp.Items, toPlaylist(p))
	}
	resp.PageInfo, resp.NextPageToken, resp.PrevPageToken = pi, next, prev
	return resp, nil
}

func (s *Server) listPlaylistItems(q url.Values) (any, *failure) {
	playlistID := q.Get("playlistId")
	ids, ok := s.items[playlistID]
	if !ok {
		return nil, &failure{
			status:  http.StatusNotFound,
			reason:  "playlistNotFound",
			message: "The playlist identified with the request's playlistId parameter cannot be found.",
		}
	}

	if videoID := q.Get("videoId"); videoID != "" {
		var filtered []string
		for _, id := range ids {
			if id == videoID {
				filtered = append(filtered, id)
			}
		}
		ids = filtered
	}

	resp := &yt.PlaylistItemListResponse{Kind: "youtube#playlistItemListResponse", Items: []*yt.PlaylistItem{}}
	start, end, pi, next, prev := window(q, len(ids))
	for i, id := range ids[start:end] {
		resp.Items = append(resp.Items, &yt.PlaylistItem{
			Kind: "youtube#playlistItem",
			Id:   playlistID + "." + strconv.Itoa(start+i),
			ContentDetails: &yt.PlaylistItemContentDetails{
				VideoId: id,
			},
		})
	}
	resp.PageInfo, resp.NextPageToken, resp.PrevPageToken = pi, next, prev
	return resp, nil
}

func thumbnails(base string) *yt.ThumbnailDetails {
	return &yt.ThumbnailDetails{
		Default: &yt.Thumbnail{Url: base + "/default.jpg", Width: 120, Height: 90},
		Medium:  &yt.Thumbnail{Url: base + "/mqdefault.jpg", Width: 320, Height: 180},
		High:    &yt.Thumbnail{Url: base + "/hqdefault.jpg", Width: 480, Height: 360},
	}
}

func toVideo(v Video) *yt.Video {
	return &yt.Video{
		Kind: "youtube#video",
		Id:   v.ID,
		Snippet: &yt.VideoSnippet{
			PublishedAt:  v.PublishedAt.UTC().Format(time.RFC3339),
			ChannelId:    v.ChannelID,
			ChannelTitle: v.ChannelTitle,
			Title:        v.Title,
			Description:  v.Description,
			Tags:         v.Tags,
			Thumbnails:   thumbnails("https://i.ytimg.com/vi/" + v.ID),
		},
		ContentDetails: &yt.VideoContentDetails{
			Duration:   v.Duration,
			Dimension:  "2d",
			Definition: "hd",
		},
		Statistics: &yt.VideoStatistics{
			ViewCount:    v.Views,
			LikeCount:    v.Likes,
			CommentCount: v.Comments,
		},
	}
}

func toPlaylist(p Playlist) *yt.Playlist {
	return &yt.Playlist{
		Kind: "youtube#playlist",
		Id:   p.ID,
		Snippet: &yt.PlaylistSnippet{
			PublishedAt:  p.PublishedAt.UTC().Format(time.RFC3339),
			ChannelId:    p.ChannelID,
			ChannelTitle: p.ChannelTitle,
			Title:        p.Title,
			Description:  p.Description,
			Thumbnails:   thumbnails("https://i.ytimg.com/vi/" + p.ID),
		},
		ContentDetails: &yt.PlaylistContentDetails{ItemCount: p.ItemCount},
	}
}

// parseSeconds reads the M and S parts of a PT#M#S duration, enough for the
// short-duration search filter.
func parseSeconds(iso string) int {
	rest := strings.TrimPrefix(iso, "PT")
	total, n := 0, 0
	for _, r := range rest {
		switch {
		case r >= '0' && r <= '9':
			n = n*10 + int(r-'0')
		case r == 'H':
			total += n * 3600
			n = 0
		case r == 'M':
			total += n * 60
			n = 0
		case r == 'S':
			total += n
			n = 0
		}
	}
	return total
}
