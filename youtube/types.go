package youtube

import (
	"strconv"

	yt "google.golang.org/api/youtube/v3"
)

// Thumbnail is a single thumbnail rendition.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int64  `json:"width,omitempty"`
	Height int64  `json:"height,omitempty"`
}

// Thumbnails holds every rendition the API returned.
type Thumbnails struct {
	Default  *Thumbnail `json:"default,omitempty"`
	Medium   *Thumbnail `json:"medium,omitempty"`
	High     *Thumbnail `json:"high,omitempty"`
	Standard *Thumbnail `json:"standard,omitempty"`
	Maxres   *Thumbnail `json:"maxres,omitempty"`
}

// Best returns the highest quality thumbnail URL available, or "".
func (t *Thumbnails) Best() string {
	if t == nil {
		return ""
	}
	for _, th := range []*Thumbnail{t.Maxres, t.High, t.Medium, t.Default} {
		if th != nil && th.URL != "" {
			return th.URL
		}
	}
	return ""
}

// VideoSnippet mirrors the upstream video snippet.
type VideoSnippet struct {
	PublishedAt          string      `json:"publishedAt"`
	ChannelID            string      `json:"channelId"`
	Title                string      `json:"title"`
	Description          string      `json:"description"`
	Thumbnails           *Thumbnails `json:"thumbnails"`
	ChannelTitle         string      `json:"channelTitle"`
	Tags                 []string    `json:"tags,omitempty"`
	CategoryID           string      `json:"categoryId,omitempty"`
	LiveBroadcastContent string      `json:"liveBroadcastContent,omitempty"`
	DefaultLanguage      string      `json:"defaultLanguage,omitempty"`
	DefaultAudioLanguage string      `json:"defaultAudioLanguage,omitempty"`
}

// VideoContentDetails mirrors the upstream content details.
type VideoContentDetails struct {
	Duration        string `json:"duration"`
	Dimension       string `json:"dimension,omitempty"`
	Definition      string `json:"definition,omitempty"`
	Caption         string `json:"caption,omitempty"`
	LicensedContent bool   `json:"licensedContent"`
	Projection      string `json:"projection,omitempty"`
}

// VideoStatistics keeps the upstream string encoding of counters so stored
// legacy values round-trip unchanged.
type VideoStatistics struct {
	ViewCount     string `json:"viewCount"`
	LikeCount     string `json:"likeCount"`
	DislikeCount  string `json:"dislikeCount,omitempty"`
	FavoriteCount string `json:"favoriteCount"`
	CommentCount  string `json:"commentCount"`
}

// Video is a video in the upstream ("legacy") shape plus the Shorts flag.
type Video struct {
	ID             string               `json:"id"`
	Snippet        *VideoSnippet        `json:"snippet"`
	ContentDetails *VideoContentDetails `json:"contentDetails"`
	Statistics     *VideoStatistics     `json:"statistics"`
	IsShort        bool                 `json:"isShort"`
}

// ChannelID returns the owning channel ID or "".
func (v *Video) ChannelID() string {
	if v == nil || v.Snippet == nil {
		return ""
	}
	return v.Snippet.ChannelID
}

// PlaylistSnippet mirrors the upstream playlist snippet.
type PlaylistSnippet struct {
	PublishedAt     string      `json:"publishedAt"`
	ChannelID       string      `json:"channelId"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Thumbnails      *Thumbnails `json:"thumbnails"`
	ChannelTitle    string      `json:"channelTitle"`
	DefaultLanguage string      `json:"defaultLanguage,omitempty"`
}

// PlaylistContentDetails carries the item count.
type PlaylistContentDetails struct {
	ItemCount int64 `json:"itemCount"`
}

// Playlist is a playlist in the upstream ("legacy") shape.
type Playlist struct {
	ID             string                  `json:"id"`
	Snippet        *PlaylistSnippet        `json:"snippet"`
	ContentDetails *PlaylistContentDetails `json:"contentDetails"`
}

// PageInfo mirrors the upstream paging summary.
type PageInfo struct {
	TotalResults   int64 `json:"totalResults"`
	ResultsPerPage int64 `json:"resultsPerPage"`
}

// VideoPage is one page of videos with the tokens needed to move around.
type VideoPage struct {
	Videos        []*Video  `json:"videos"`
	PageInfo      *PageInfo `json:"pageInfo,omitempty"`
	NextPageToken string    `json:"nextPageToken,omitempty"`
	PrevPageToken string    `json:"prevPageToken,omitempty"`
}

// PlaylistPage is one page of playlists.
type PlaylistPage struct {
	Playlists     []*Playlist `json:"playlists"`
	PageInfo      *PageInfo   `json:"pageInfo,omitempty"`
	NextPageToken string      `json:"nextPageToken,omitempty"`
	PrevPageToken string      `json:"prevPageToken,omitempty"`
}

func convertThumbnails(td *yt.ThumbnailDetails) *Thumbnails {
	if td == nil {
		return nil
	}
	conv := func(t *yt.Thumbnail) *Thumbnail {
		if t == nil {
			return nil
		}
		return &Thumbnail{URL: t.Url, Width: t.Width, Height: t.Height}
	}
	return &Thumbnails{
		Default:  conv(td.Default),
		Medium:   conv(td.Medium),
		High:     conv(td.High),
		Standard: conv(td.Standard),
		Maxres:   conv(td.Maxres),
	}
}

func convertVideo(v *yt.Video) *Video {
	out := &Video{ID: v.Id}
	if s := v.Snippet; s != nil {
		out.Snippet = &VideoSnippet{
			PublishedAt:          s.PublishedAt,
			ChannelID:            s.ChannelId,
			Title:                s.Title,
			Description:          s.Description,
			Thumbnails:           convertThumbnails(s.Thumbnails),
			ChannelTitle:         s.ChannelTitle,
			Tags:                 s.Tags,
			CategoryID:           s.CategoryId,
			LiveBroadcastContent: s.LiveBroadcastContent,
			DefaultLanguage:      s.DefaultLanguage,
			DefaultAudioLanguage: s.DefaultAudioLanguage,
		}
	}
	if cd := v.ContentDetails; cd != nil {
		out.ContentDetails = &VideoContentDetails{
			Duration:        cd.Duration,
			Dimension:       cd.Dimension,
			Definition:      cd.Definition,
			Caption:         cd.Caption,
			LicensedContent: cd.LicensedContent,
			Projection:      cd.Projection,
		}
	}
	if st := v.Statistics; st != nil {
		out.Statistics = &VideoStatistics{
			ViewCount:     strconv.FormatUint(st.ViewCount, 10),
			LikeCount:     strconv.FormatUint(st.LikeCount, 10),
			FavoriteCount: strconv.FormatUint(st.FavoriteCount, 10),
			CommentCount:  strconv.FormatUint(st.CommentCount, 10),
		}
		if st.DislikeCount > 0 {
			out.Statistics.DislikeCount = strconv.FormatUint(st.DislikeCount, 10)
		}
	}
	return out
}

func convertPlaylist(p *yt.Playlist) *Playlist {
	out := &Playlist{ID: p.Id}
	if s := p.Snippet; s != nil {
		out.Snippet = &PlaylistSnippet{
			PublishedAt:     s.PublishedAt,
			ChannelID:       s.ChannelId,
			Title:           s.Title,
			Description:     s.Description,
			Thumbnails:      convertThumbnails(s.Thumbnails),
			ChannelTitle:    s.ChannelTitle,
			DefaultLanguage: s.DefaultLanguage,
		}
	}
	if cd := p.ContentDetails; cd != nil {
		out.ContentDetails = &PlaylistContentDetails{ItemCount: cd.ItemCount}
	}
	return out
}

func convertPageInfo(pi *yt.PageInfo) *PageInfo {
	if pi == nil {
		return nil
	}
	return &PageInfo{TotalResults: pi.TotalResults, ResultsPerPage: pi.ResultsPerPage}
}
