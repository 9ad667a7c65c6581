package field

import (
	"ytpicker/youtube"
)

// Thumbs are the three thumbnail sizes kept in the simplified shape.
type Thumbs struct {
	Small  string `json:"small,omitempty"`
	Medium string `json:"medium,omitempty"`
	Large  string `json:"large,omitempty"`
}

// SimplifiedVideo is the flattened video shape.
type SimplifiedVideo struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	PublishedAt        string   `json:"publishedAt"`
	Duration           string   `json:"duration"`
	DurationFormatted  string   `json:"durationFormatted"`
	DurationSeconds    int64    `json:"durationSeconds"`
	ChannelTitle       string   `json:"channelTitle"`
	ChannelID          string   `json:"channelId"`
	ViewCount          int64    `json:"viewCount"`
	ViewCountFormatted string   `json:"viewCountFormatted"`
	LikeCount          int64    `json:"likeCount"`
	CommentCount       int64    `json:"commentCount"`
	ThumbnailURL       string   `json:"thumbnailUrl"`
	Thumbnails         Thumbs   `json:"thumbnails"`
	EmbedURL           string   `json:"embedUrl"`
	WatchURL           string   `json:"watchUrl"`
	IsShort            bool     `json:"isShort"`
	Tags               []string `json:"tags,omitempty"`
	SelectedAt         string   `json:"selectedAt,omitempty"`
}

// SimplifiedPlaylist is the flattened playlist shape.
type SimplifiedPlaylist struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	PublishedAt  string `json:"publishedAt"`
	ChannelTitle string `json:"channelTitle"`
	ChannelID    string `json:"channelId"`
	VideoCount   int64  `json:"videoCount"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Thumbnails   Thumbs `json:"thumbnails"`
	PlaylistURL  string `json:"playlistUrl"`
}

func thumbs(t *youtube.Thumbnails) Thumbs {
	if t == nil {
		return Thumbs{}
	}
	var out Thumbs
	if t.Default != nil {
		out.Small = t.Default.URL
	}
	if t.Medium != nil {
		out.Medium = t.Medium.URL
	}
	if t.High != nil {
		out.Large = t.High.URL
	}
	return out
}

// SimplifyVideo flattens v. selectedAt is only set for multi-video fields.
func SimplifyVideo(v *youtube.Video, opts Options, selectedAt string) SimplifiedVideo {
	out := SimplifiedVideo{
		ID:         v.ID,
		EmbedURL:   EmbedURL(v.ID),
		WatchURL:   WatchURL(v.ID),
		IsShort:    v.IsShort,
		SelectedAt: selectedAt,
	}

	if s := v.Snippet; s != nil {
		out.Title = s.Title
		out.PublishedAt = s.PublishedAt
		out.ChannelTitle = s.ChannelTitle
		out.ChannelID = s.ChannelID
		out.ThumbnailURL = s.Thumbnails.Best()
		out.Thumbnails = thumbs(s.Thumbnails)
		if opts.IncludeDescription {
			out.Description = s.Description
		}
		if opts.IncludeTags && len(s.Tags) > 0 {
			out.Tags = s.Tags
		}
	}

	if cd := v.ContentDetails; cd != nil {
		out.Duration = cd.Duration
		out.DurationFormatted = FormatDuration(cd.Duration)
		out.DurationSeconds = DurationSeconds(cd.Duration)
	}

	views := "0"
	if st := v.Statistics; st != nil {
		if st.ViewCount != "" {
			views = st.ViewCount
		}
		out.LikeCount = parseCount(st.LikeCount)
		out.CommentCount = parseCount(st.CommentCount)
	}
	out.ViewCount = parseCount(views)
	out.ViewCountFormatted = FormatCount(views)

	return out
}

// SimplifyPlaylist flattens p.
func SimplifyPlaylist(p *youtube.Playlist, opts Options) SimplifiedPlaylist {
	out := SimplifiedPlaylist{
		ID:          p.ID,
		PlaylistURL: PlaylistURL(p.ID),
	}
	if s := p.Snippet; s != nil {
		out.Title = s.Title
		out.PublishedAt = s.PublishedAt
		out.ChannelTitle = s.ChannelTitle
		out.ChannelID = s.ChannelID
		out.ThumbnailURL = s.Thumbnails.Best()
		out.Thumbnails = thumbs(s.Thumbnails)
		if opts.IncludeDescription {
			out.Description = s.Description
		}
	}
	if p.ContentDetails != nil {
		out.VideoCount = p.ContentDetails.ItemCount
	}
	return out
}
