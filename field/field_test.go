package field

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytpicker/youtube"
)

func sampleVideo(id string) *youtube.Video {
	return &youtube.Video{
		ID: id,
		Snippet: &youtube.VideoSnippet{
			PublishedAt:  "2023-03-01T12:00:00Z",
			ChannelID:    "UCuAXFkgsw1L7xaCfnd5JJOw",
			Title:        "Title " + id,
			Description:  "About " + id,
			ChannelTitle: "Test Channel",
			Tags:         []string{"go", "youtube"},
			Thumbnails: &youtube.Thumbnails{
				Default: &youtube.Thumbnail{URL: "https://i.ytimg.com/vi/" + id + "/default.jpg"},
				Medium:  &youtube.Thumbnail{URL: "https://i.ytimg.com/vi/" + id + "/mqdefault.jpg"},
				High:    &youtube.Thumbnail{URL: "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg"},
				Maxres:  &youtube.Thumbnail{URL: "https://i.ytimg.com/vi/" + id + "/maxresdefault.jpg"},
			},
		},
		ContentDetails: &youtube.VideoContentDetails{Duration: "PT1H2M3S"},
		Statistics: &youtube.VideoStatistics{
			ViewCount:    "1234567",
			LikeCount:    "890",
			CommentCount: "12",
		},
	}
}

func samplePlaylist() *youtube.Playlist {
	return &youtube.Playlist{
		ID: "PLrAXtmErZgOeiKm4sgNOknGvNjby9efdf",
		Snippet: &youtube.PlaylistSnippet{
			PublishedAt:  "2022-01-01T00:00:00Z",
			ChannelID:    "UCuAXFkgsw1L7xaCfnd5JJOw",
			Title:        "Favourites",
			Description:  "Best of",
			ChannelTitle: "Test Channel",
			Thumbnails: &youtube.Thumbnails{
				Medium: &youtube.Thumbnail{URL: "https://i.ytimg.com/pl/mq.jpg"},
				High:   &youtube.Thumbnail{URL: "https://i.ytimg.com/pl/hq.jpg"},
			},
		},
		ContentDetails: &youtube.PlaylistContentDetails{ItemCount: 42},
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[string]string{
		"PT1H2M3S": "1:02:03",
		"PT15M33S": "15:33",
		"PT45S":    "0:45",
		"PT3M":     "3:00",
		"P0D":      "P0D",
		"P1DT2H":   "P1DT2H",
		"P1D":      "P1D",
		"live":     "live",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatDuration(in), in)
	}
}

func TestDurationSeconds(t *testing.T) {
	assert.Equal(t, int64(3723), DurationSeconds("PT1H2M3S"))
	assert.Equal(t, int64(45), DurationSeconds("PT45S"))
	assert.Zero(t, DurationSeconds("P0D"))
	assert.Zero(t, DurationSeconds("live"))
}

func TestFormatCount(t *testing.T) {
	tests := map[string]string{
		"1234567": "1.2M",
		"15300":   "15.3K",
		"1000":    "1.0K",
		"999":     "999",
		"0":       "0",
		"n/a":     "n/a",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatCount(in), in)
	}
}

func TestParseFormatAndKind(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatSimplified, f)
	_, err = ParseFormat("xml")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	k, err := ParseKind("videos")
	require.NoError(t, err)
	assert.Equal(t, KindVideos, k)
	_, err = ParseKind("channel")
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestSimplifyVideo(t *testing.T) {
	v := sampleVideo("dQw4w9WgXcQ")
	v.IsShort = true

	s := SimplifyVideo(v, DefaultOptions(), "")
	assert.Equal(t, "dQw4w9WgXcQ", s.ID)
	assert.Equal(t, "Title dQw4w9WgXcQ", s.Title)
	assert.Equal(t, "About dQw4w9WgXcQ", s.Description)
	assert.Equal(t, "1:02:03", s.DurationFormatted)
	assert.Equal(t, int64(3723), s.DurationSeconds)
	assert.Equal(t, int64(1234567), s.ViewCount)
	assert.Equal(t, "1.2M", s.ViewCountFormatted)
	assert.Equal(t, int64(890), s.LikeCount)
	assert.Equal(t, int64(12), s.CommentCount)
	assert.Equal(t, "https://i.ytimg.com/vi/dQw4w9WgXcQ/maxresdefault.jpg", s.ThumbnailURL)
	assert.Equal(t, "https://i.ytimg.com/vi/dQw4w9WgXcQ/default.jpg", s.Thumbnails.Small)
	assert.Equal(t, "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg", s.Thumbnails.Large)
	assert.Equal(t, "https://www.youtube.com/embed/dQw4w9WgXcQ", s.EmbedURL)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", s.WatchURL)
	assert.True(t, s.IsShort)
	assert.Equal(t, []string{"go", "youtube"}, s.Tags)
	assert.Empty(t, s.SelectedAt)

	bare := SimplifyVideo(v, Options{}, "2024-01-01T00:00:00.000Z")
	assert.Empty(t, bare.Description)
	assert.Nil(t, bare.Tags)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", bare.SelectedAt)
}

func TestSimplifyVideoWithoutStatistics(t *testing.T) {
	v := sampleVideo("dQw4w9WgXcQ")
	v.Statistics = nil

	s := SimplifyVideo(v, DefaultOptions(), "")
	assert.Zero(t, s.ViewCount)
	assert.Equal(t, "0", s.ViewCountFormatted)
}

func TestSimplifyPlaylist(t *testing.T) {
	s := SimplifyPlaylist(samplePlaylist(), DefaultOptions())
	assert.Equal(t, "Favourites", s.Title)
	assert.Equal(t, int64(42), s.VideoCount)
	assert.Equal(t, "https://i.ytimg.com/pl/hq.jpg", s.ThumbnailURL)
	assert.Empty(t, s.Thumbnails.Small)
	assert.Equal(t, "https://www.youtube.com/playlist?list=PLrAXtmErZgOeiKm4sgNOknGvNjby9efdf", s.PlaylistURL)

	s = SimplifyPlaylist(samplePlaylist(), Options{})
	assert.Empty(t, s.Description)
}

func TestSelection(t *testing.T) {
	at := time.Date(2024, time.May, 1, 8, 0, 0, 0, time.UTC)
	s := NewSelection()

	assert.True(t, s.Add(sampleVideo("aaaaaaaaaaa"), at))
	assert.True(t, s.Add(sampleVideo("bbbbbbbbbbb"), at))
	assert.False(t, s.Add(sampleVideo("aaaaaaaaaaa"), at), "duplicates are ignored")
	assert.True(t, s.Toggle(sampleVideo("ccccccccccc"), at))
	assert.Equal(t, []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"}, s.IDs())

	assert.False(t, s.Toggle(sampleVideo("bbbbbbbbbbb"), at))
	assert.Equal(t, []string{"aaaaaaaaaaa", "ccccccccccc"}, s.IDs())

	require.NoError(t, s.Move(1, 0))
	assert.Equal(t, []string{"ccccccccccc", "aaaaaaaaaaa"}, s.IDs())
	assert.Error(t, s.Move(0, 5))

	assert.Equal(t, "2024-05-01T08:00:00.000Z", s.Entries()[0].SelectedAt)

	assert.False(t, s.Remove("zzzzzzzzzzz"))
	s.Clear()
	assert.Zero(t, s.Len())
}

func TestEncodeEmpty(t *testing.T) {
	for _, kind := range []Kind{KindVideo, KindVideos, KindPlaylist} {
		out, err := Encode(kind, FormatSimplified, DefaultOptions(), Picked{})
		require.NoError(t, err)
		assert.Empty(t, out, kind)
	}

	_, err := Encode("channel", FormatSimplified, DefaultOptions(), Picked{})
	assert.ErrorIs(t, err, ErrInvalidKind)
	_, err = Encode(KindVideo, "xml", DefaultOptions(), Picked{})
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestEncodeDecodeVideo(t *testing.T) {
	v := sampleVideo("dQw4w9WgXcQ")

	legacy, err := Encode(KindVideo, FormatLegacy, DefaultOptions(), Picked{Video: v})
	require.NoError(t, err)
	assert.Contains(t, legacy, `"snippet"`)
	assert.Contains(t, legacy, `"viewCount":"1234567"`)
	assert.False(t, IsSimplified([]byte(legacy)))

	simplified, err := Encode(KindVideo, FormatSimplified, Options{IncludeTags: false, IncludeDescription: true}, Picked{Video: v})
	require.NoError(t, err)
	assert.NotContains(t, simplified, `"snippet"`)
	assert.NotContains(t, simplified, `"tags"`)
	assert.True(t, IsSimplified([]byte(simplified)))

	fromLegacy, err := Decode(KindVideo, legacy)
	require.NoError(t, err)
	assert.Equal(t, FormatLegacy, fromLegacy.Format)
	require.NotNil(t, fromLegacy.Video)

	fromSimplified, err := Decode(KindVideo, simplified)
	require.NoError(t, err)
	assert.Equal(t, FormatSimplified, fromSimplified.Format)
	require.NotNil(t, fromSimplified.Video)

	assert.Equal(t, fromLegacy.Video.Title, fromSimplified.Video.Title)
	assert.Equal(t, fromLegacy.Video.DurationSeconds, fromSimplified.Video.DurationSeconds)
}

func TestEncodeDecodeVideos(t *testing.T) {
	at := time.Date(2024, time.May, 1, 8, 0, 0, 0, time.UTC)
	sel := NewSelection()
	sel.Add(sampleVideo("aaaaaaaaaaa"), at)
	sel.Add(sampleVideo("bbbbbbbbbbb"), at.Add(time.Minute))

	legacy, err := Encode(KindVideos, FormatLegacy, DefaultOptions(), Picked{Videos: sel.Entries()})
	require.NoError(t, err)

	var stored []SelectedVideo
	require.NoError(t, json.Unmarshal([]byte(legacy), &stored))
	require.Len(t, stored, 2)
	assert.Equal(t, "2024-05-01T08:01:00.000Z", stored[1].SelectedAt)

	value, err := Decode(KindVideos, legacy)
	require.NoError(t, err)
	assert.Equal(t, FormatLegacy, value.Format)
	require.Len(t, value.Videos, 2)
	assert.Equal(t, "aaaaaaaaaaa", value.Videos[0].ID)
	assert.Equal(t, "2024-05-01T08:00:00.000Z", value.Videos[0].SelectedAt)

	restored, err := DecodeSelection(legacy)
	require.NoError(t, err)
	assert.Equal(t, sel.IDs(), restored.IDs())

	simplified, err := Encode(KindVideos, FormatSimplified, DefaultOptions(), Picked{Videos: sel.Entries()})
	require.NoError(t, err)
	value, err = Decode(KindVideos, simplified)
	require.NoError(t, err)
	assert.Equal(t, FormatSimplified, value.Format)
	assert.Equal(t, "2024-05-01T08:01:00.000Z", value.Videos[1].SelectedAt)

	empty, err := DecodeSelection(simplified)
	require.NoError(t, err)
	assert.Zero(t, empty.Len())
}

func TestEncodeDecodePlaylist(t *testing.T) {
	legacy, err := Encode(KindPlaylist, FormatLegacy, DefaultOptions(), Picked{Playlist: samplePlaylist()})
	require.NoError(t, err)

	value, err := Decode(KindPlaylist, legacy)
	require.NoError(t, err)
	assert.Equal(t, FormatLegacy, value.Format)
	require.NotNil(t, value.Playlist)
	assert.Equal(t, int64(42), value.Playlist.VideoCount)

	simplified, err := Encode(KindPlaylist, FormatSimplified, DefaultOptions(), Picked{Playlist: samplePlaylist()})
	require.NoError(t, err)
	value, err = Decode(KindPlaylist, simplified)
	require.NoError(t, err)
	assert.Equal(t, "Favourites", value.Playlist.Title)
}

func TestDecodeEmptyAndMalformed(t *testing.T) {
	value, err := Decode(KindVideo, "  ")
	require.NoError(t, err)
	assert.Nil(t, value.Video)

	_, err = Decode(KindVideo, "{not json")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Decode(KindVideos, `{"id":"x"}`)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Decode("channel", `{}`)
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestIsSimplified(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{`[]`, true},
		{`[{"video":{"id":"x","snippet":{}},"selectedAt":"t"}]`, false},
		{`[{"id":"x","title":"t"}]`, true},
		{`{"id":"x","snippet":{"title":"t"}}`, false},
		{`{"id":"x","title":"t"}`, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSimplified([]byte(tt.raw)), tt.raw)
	}
}
