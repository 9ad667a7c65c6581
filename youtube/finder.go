// Package youtube finds videos, playlists and Shorts through the YouTube
// Data API v3 and pages through them.
package youtube

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	yt "google.golang.org/api/youtube/v3"
)

// DefaultPageSize is used when a query does not set MaxResults.
const DefaultPageSize = 25

// DefaultOrder is used when a query does not set Order.
const DefaultOrder = "date"

var validOrders = map[string]bool{
	"date":      true,
	"rating":    true,
	"relevance": true,
	"title":     true,
	"viewCount": true,
	// playlist searches
	"videoCount": true,
}

// ContentFilter narrows a video page by kind.
type ContentFilter string

const (
	FilterAll    ContentFilter = "all"
	FilterVideos ContentFilter = "videos"
	FilterShorts ContentFilter = "shorts"
)

// ParseContentFilter validates s; an empty string means FilterAll.
func ParseContentFilter(s string) (ContentFilter, error) {
	switch ContentFilter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterVideos, FilterShorts:
		return ContentFilter(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFilter, s)
}

// VideoQuery selects a page of videos.
type VideoQuery struct {
	ChannelID  string
	Search     string
	PageToken  string
	MaxResults int
	Order      string
	Filter     ContentFilter
}

// PlaylistQuery selects a page of playlists.
type PlaylistQuery struct {
	ChannelID  string
	Search     string
	PageToken  string
	MaxResults int
	Order      string
}

// ShortsQuery selects a page of Shorts.
type ShortsQuery struct {
	ChannelID  string
	Search     string
	PageToken  string
	MaxResults int
	Order      string
}

func normalizePaging(maxResults int, order string) (int64, string, error) {
	switch {
	case maxResults <= 0:
		maxResults = DefaultPageSize
	case maxResults > MaxPageSize:
		maxResults = MaxPageSize
	}
	if order == "" {
		order = DefaultOrder
	}
	if !validOrders[order] {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidOrder, order)
	}
	return int64(maxResults), order, nil
}

// API is the set of Data API calls the Finder needs. *Client implements it.
type API interface {
	PlaylistItemsLister
	Search(ctx context.Context, p SearchParams) (*yt.SearchListResponse, error)
	VideosByID(ctx context.Context, ids []string) ([]*yt.Video, error)
	PlaylistsByID(ctx context.Context, ids []string) ([]*yt.Playlist, error)
	ChannelPlaylists(ctx context.Context, channelID, pageToken string, maxResults int64) (*yt.PlaylistListResponse, error)
}

// Finder combines search results, detail lookups and Shorts
// classification into pages.
type Finder struct {
	api        API
	classifier Classifier
}

// NewFinder creates a Finder. A nil classifier gets the default bulk one.
func NewFinder(api API, classifier Classifier) *Finder {
	if classifier == nil {
		classifier = NewClassifier(api, DefaultShortsConfig(), nil)
	}
	return &Finder{api: api, classifier: classifier}
}

// Videos returns one page of videos in search order with IsShort set.
func (f *Finder) Videos(ctx context.Context, q VideoQuery) (*VideoPage, error) {
	filter, err := ParseContentFilter(string(q.Filter))
	if err != nil {
		return nil, err
	}
	if filter == FilterShorts {
		return f.Shorts(ctx, ShortsQuery{
			ChannelID:  q.ChannelID,
			Search:     q.Search,
			PageToken:  q.PageToken,
			MaxResults: q.MaxResults,
			Order:      q.Order,
		})
	}

	maxResults, order, err := normalizePaging(q.MaxResults, q.Order)
	if err != nil {
		return nil, err
	}

	page, err := f.searchVideos(ctx, SearchParams{
		Type:       "video",
		Query:      q.Search,
		ChannelID:  q.ChannelID,
		Order:      order,
		PageToken:  q.PageToken,
		MaxResults: maxResults,
	})
	if err != nil {
		return nil, err
	}

	if filter == FilterVideos {
		page.Videos = keep(page.Videos, func(v *Video) bool { return !v.IsShort })
	}
	return page, nil
}

// Shorts returns one page of Shorts. With a channel and no search term the
// channel's Shorts playlist is paged directly; otherwise a short-duration
// search is filtered down to classified Shorts.
func (f *Finder) Shorts(ctx context.Context, q ShortsQuery) (*VideoPage, error) {
	maxResults, order, err := normalizePaging(q.MaxResults, q.Order)
	if err != nil {
		return nil, err
	}

	if playlistID, ok := ShortsPlaylistID(q.ChannelID); ok && q.Search == "" {
		return f.shortsPlaylist(ctx, playlistID, q.PageToken, maxResults)
	}

	page, err := f.searchVideos(ctx, SearchParams{
		Type:          "video",
		Query:         q.Search,
		ChannelID:     q.ChannelID,
		Order:         order,
		PageToken:     q.PageToken,
		MaxResults:    maxResults,
		VideoDuration: "short",
	})
	if err != nil {
		return nil, err
	}
	page.Videos = keep(page.Videos, func(v *Video) bool { return v.IsShort })
	return page, nil
}

func (f *Finder) shortsPlaylist(ctx context.Context, playlistID, pageToken string, maxResults int64) (*VideoPage, error) {
	resp, err := f.api.PlaylistItems(ctx, playlistID, "", pageToken, maxResults)
	if isMissingPlaylist(err) {
		return &VideoPage{Videos: []*Video{}}, nil
	}
	if err != nil {
		return nil, err
	}

	page := &VideoPage{
		Videos:        []*Video{},
		PageInfo:      convertPageInfo(resp.PageInfo),
		NextPageToken: resp.NextPageToken,
		PrevPageToken: resp.PrevPageToken,
	}

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
			ids = append(ids, item.ContentDetails.VideoId)
		}
	}
	if len(ids) == 0 {
		return page, nil
	}

	videos, err := f.hydrate(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, v := range videos {
		v.IsShort = true
	}
	page.Videos = videos
	return page, nil
}

// searchVideos runs a video search, hydrates the hits and classifies them.
func (f *Finder) searchVideos(ctx context.Context, p SearchParams) (*VideoPage, error) {
	resp, err := f.api.Search(ctx, p)
	if err != nil {
		return nil, err
	}

	page := &VideoPage{Videos: []*Video{}, PageInfo: convertPageInfo(resp.PageInfo)}
	if len(resp.Items) == 0 {
		return page, nil
	}
	page.NextPageToken = resp.NextPageToken
	page.PrevPageToken = resp.PrevPageToken

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			ids = append(ids, item.Id.VideoId)
		}
	}
	if len(ids) == 0 {
		return page, nil
	}

	videos, err := f.hydrate(ctx, ids)
	if err != nil {
		return nil, err
	}
	f.classify(ctx, videos)
	page.Videos = videos
	return page, nil
}

// hydrate fetches video details and returns them in the order of ids,
// dropping IDs the API did not return.
func (f *Finder) hydrate(ctx context.Context, ids []string) ([]*Video, error) {
	ids = dedupe(ids)
	items, err := f.api.VideosByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*yt.Video, len(items))
	for _, item := range items {
		byID[item.Id] = item
	}
	videos := make([]*Video, 0, len(ids))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			videos = append(videos, convertVideo(item))
		}
	}
	return videos, nil
}

func (f *Finder) classify(ctx context.Context, videos []*Video) {
	if err := f.classifier.Classify(ctx, videos); err != nil {
		log.Warn().Err(err).Int("videos", len(videos)).Msg("youtube: shorts classification incomplete")
	}
}

// Playlists returns one page of playlists. A channel without a search term
// lists the channel's playlists directly; anything else goes through search.
func (f *Finder) Playlists(ctx context.Context, q PlaylistQuery) (*PlaylistPage, error) {
	maxResults, order, err := normalizePaging(q.MaxResults, q.Order)
	if err != nil {
		return nil, err
	}

	if q.ChannelID != "" && q.Search == "" {
		resp, err := f.api.ChannelPlaylists(ctx, q.ChannelID, q.PageToken, maxResults)
		if err != nil {
			return nil, err
		}
		page := &PlaylistPage{
			Playlists:     make([]*Playlist, 0, len(resp.Items)),
			PageInfo:      convertPageInfo(resp.PageInfo),
			NextPageToken: resp.NextPageToken,
			PrevPageToken: resp.PrevPageToken,
		}
		for _, item := range resp.Items {
			page.Playlists = append(page.Playlists, convertPlaylist(item))
		}
		return page, nil
	}

	resp, err := f.api.Search(ctx, SearchParams{
		Type:       "playlist",
		Query:      q.Search,
		ChannelID:  q.ChannelID,
		Order:      order,
		PageToken:  q.PageToken,
		MaxResults: maxResults,
	})
	if err != nil {
		return nil, err
	}

	page := &PlaylistPage{Playlists: []*Playlist{}, PageInfo: convertPageInfo(resp.PageInfo)}
	if len(resp.Items) == 0 {
		return page, nil
	}
	page.NextPageToken = resp.NextPageToken
	page.PrevPageToken = resp.PrevPageToken

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id != nil && item.Id.PlaylistId != "" {
			ids = append(ids, item.Id.PlaylistId)
		}
	}
	if len(ids) == 0 {
		return page, nil
	}
	ids = dedupe(ids)

	items, err := f.api.PlaylistsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*yt.Playlist, len(items))
	for _, item := range items {
		byID[item.Id] = item
	}
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			page.Playlists = append(page.Playlists, convertPlaylist(item))
		}
	}
	return page, nil
}

// Resolved is the item a pasted URL points at.
type Resolved struct {
	Kind     string    `json:"kind"`
	Video    *Video    `json:"video,omitempty"`
	Playlist *Playlist `json:"playlist,omitempty"`
}

// Resolve looks up the video or playlist a YouTube URL or bare ID refers to.
// A watch URL carrying both v= and list= resolves to the video.
func (f *Finder) Resolve(ctx context.Context, raw string) (*Resolved, error) {
	if id, ok := ExtractVideoID(raw); ok {
		videos, err := f.hydrate(ctx, []string{id})
		if err != nil {
			return nil, err
		}
		if len(videos) == 0 {
			return nil, fmt.Errorf("%w: video %s", ErrNotFound, id)
		}
		f.classify(ctx, videos)
		return &Resolved{Kind: "video", Video: videos[0]}, nil
	}

	if id, ok := ExtractPlaylistID(raw); ok {
		items, err := f.api.PlaylistsByID(ctx, []string{id})
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("%w: playlist %s", ErrNotFound, id)
		}
		return &Resolved{Kind: "playlist", Playlist: convertPlaylist(items[0])}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
}

func keep(videos []*Video, pred func(*Video) bool) []*Video {
	out := make([]*Video, 0, len(videos))
	for _, v := range videos {
		if pred(v) {
			out = append(out, v)
		}
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
