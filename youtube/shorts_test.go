package youtube

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yt "google.golang.org/api/youtube/v3"

	"ytpicker/internal/ytfake"
)

func TestShortsPlaylistID(t *testing.T) {
	tests := []struct {
		channel string
		want    string
		wantOK  bool
	}{
		{"UCuAXFkgsw1L7xaCfnd5JJOw", "UUSHuAXFkgsw1L7xaCfnd5JJOw", true},
		{"UC", "", false},
		{"HCuAXFkgsw1L7xaCfnd5JJOw", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.channel, func(t *testing.T) {
			got, ok := ShortsPlaylistID(tt.channel)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsShortCandidate(t *testing.T) {
	video := func(duration, published string) *Video {
		return &Video{
			ID:             "abcdefghijk",
			Snippet:        &VideoSnippet{PublishedAt: published},
			ContentDetails: &VideoContentDetails{Duration: duration},
		}
	}

	tests := []struct {
		name  string
		video *Video
		want  bool
	}{
		{"short and recent", video("PT59S", "2023-01-01T00:00:00Z"), true},
		{"exactly three minutes", video("PT3M", "2023-01-01T00:00:00Z"), true},
		{"over three minutes", video("PT3M1S", "2023-01-01T00:00:00Z"), false},
		{"launch day", video("PT10S", "2020-09-14T00:00:00Z"), true},
		{"before launch", video("PT10S", "2020-09-13T23:59:59Z"), false},
		{"zero duration live", video("P0D", "2023-01-01T00:00:00Z"), false},
		{"bad date", video("PT10S", "yesterday"), false},
		{"no details", &Video{ID: "abcdefghijk"}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsShortCandidate(tt.video))
		})
	}
}

func candidate(id, channel string) *Video {
	return &Video{
		ID:             id,
		Snippet:        &VideoSnippet{ChannelID: channel, PublishedAt: recent.Format(time.RFC3339)},
		ContentDetails: &VideoContentDetails{Duration: "PT30S"},
	}
}

func TestBulkClassifierMarksMembers(t *testing.T) {
	srv := ytfake.New()
	defer srv.Close()
	seedChannel(srv)

	c := newTestClient(t, srv)
	cl := NewClassifier(c, DefaultShortsConfig(), nil)

	videos := []*Video{
		candidate("short000001", channelA),
		candidate("notashort01", channelA),
		candidate("short000002", channelA),
		candidate("chanb000001", channelB),
	}
	require.NoError(t, cl.Classify(context.Background(), videos))

	assert.True(t, videos[0].IsShort)
	assert.False(t, videos[1].IsShort)
	assert.True(t, videos[2].IsShort)
	assert.False(t, videos[3].IsShort, "missing Shorts playlist means no Shorts")

	// One enumeration per channel, not per video.
	assert.Equal(t, 2, srv.Calls(ytfake.PlaylistItems))
}

func TestBulkClassifierSkipsNonCandidates(t *testing.T) {
	srv := ytfake.New()
	defer srv.Close()
	seedChannel(srv)

	c := newTestClient(t, srv)
	cl := NewClassifier(c, DefaultShortsConfig(), nil)

	long := candidate("long0000001", channelA)
	long.ContentDetails.Duration = "PT12M"
	noPrefix := candidate("short000001", "HC"+channelA[2:])
	// A stale flag is cleared.
	long.IsShort = true

	require.NoError(t, cl.Classify(context.Background(), []*Video{long, noPrefix}))
	assert.False(t, long.IsShort)
	assert.False(t, noPrefix.IsShort)
	assert.Zero(t, srv.Calls(ytfake.PlaylistItems))
}

func TestBulkClassifierStopsEarly(t *testing.T) {
	srv := ytfake.New()
	defer srv.Close()

	ids := make([]string, 0, 120)
	for i := 0; i < 120; i++ {
		ids = append(ids, fmt.Sprintf("sh%09d", i))
	}
	srv.SetPlaylistItems(shortsA, ids...)

	c := newTestClient(t, srv)
	cl := NewClassifier(c, DefaultShortsConfig(), nil)

	v := candidate("sh000000003", channelA)
	require.NoError(t, cl.Classify(context.Background(), []*Video{v}))
	assert.True(t, v.IsShort)
	assert.Equal(t, 1, srv.Calls(ytfake.PlaylistItems))

	// A candidate deeper in the playlist is not answered by the partial set.
	deep := candidate("sh000000110", channelA)
	require.NoError(t, cl.Classify(context.Background(), []*Video{deep}))
	assert.True(t, deep.IsShort)
	assert.Equal(t, 4, srv.Calls(ytfake.PlaylistItems))

	// The full enumeration is now memoised and answers anything.
	other := candidate("notashort01", channelA)
	require.NoError(t, cl.Classify(context.Background(), []*Video{other}))
	assert.False(t, other.IsShort)
	assert.Equal(t, 4, srv.Calls(ytfake.PlaylistItems))
}

func TestBulkClassifierScanLimit(t *testing.T) {
	srv := ytfake.New()
	defer srv.Close()

	ids := make([]string, 0, 150)
	for i := 0; i < 150; i++ {
		ids = append(ids, fmt.Sprintf("sh%09d", i))
	}
	srv.SetPlaylistItems(shortsA, ids...)

	c := newTestClient(t, srv)
	cfg := DefaultShortsConfig()
	cfg.ScanLimit = 50
	cl := NewClassifier(c, cfg, nil)

	v := candidate("sh000000140", channelA)
	require.NoError(t, cl.Classify(context.Background(), []*Video{v}))
	assert.False(t, v.IsShort, "items past the scan limit are treated as regular videos")
	assert.Equal(t, 1, srv.Calls(ytfake.PlaylistItems))

	require.NoError(t, cl.Classify(context.Background(), []*Video{v}))
	assert.Equal(t, 1, srv.Calls(ytfake.PlaylistItems), "the miss is memoised")
}

func TestBulkClassifierMemoExpires(t *testing.T) {
	srv := ytfake.New()
	defer srv.Close()
	seedChannel(srv)

	now := time.Now()
	memo := NewShortsMemo(time.Minute)
	memo.now = func() time.Time { return now }

	c := newTestClient(t, srv)
	cl := NewClassifier(c, DefaultShortsConfig(), memo)

	classify := func() {
		require.NoError(t, cl.Classify(context.Background(), []*Video{candidate("short000001", channelA)}))
	}

	classify()
	classify()
	assert.Equal(t, 1, srv.Calls(ytfake.PlaylistItems))
	assert.Equal(t, 1, memo.Len())

	now = now.Add(2 * time.Minute)
	classify()
	assert.Equal(t, 2, srv.Calls(ytfake.PlaylistItems))
}

func TestBulkClassifierIsBestEffort(t *testing.T) {
	srv := ytfake.New()
	defer srv.Close()
	seedChannel(srv)
	srv.Fail(ytfake.PlaylistItems, http.StatusBadRequest, "invalidParameter", 0)

	c := newTestClient(t, srv)
	cl := NewClassifier(c, DefaultShortsConfig(), nil)

	v := candidate("short000001", channelA)
	err := cl.Classify(context.Background(), []*Video{v})
	require.Error(t, err)
	assert.Contains(t, err.Error(), channelA)
	assert.False(t, v.IsShort)
}

// laterPagesMissing fails every continuation page as if the playlist had
// been deleted mid-scan.
type laterPagesMissing struct {
	PlaylistItemsLister
}

func (l laterPagesMissing) PlaylistItems(ctx context.Context, playlistID, videoID, pageToken string, maxResults int64) (*yt.PlaylistItemListResponse, error) {
	if pageToken != "" {
		return nil, &APIError{Op: "playlistItems.list", Status: http.StatusNotFound, Reason: "playlistNotFound", Err: ErrPlaylistNotFound}
	}
	return l.PlaylistItemsLister.PlaylistItems(ctx, playlistID, videoID, pageToken, maxResults)
}

func TestBulkClassifierMissingLaterPage(t *testing.T) {
	srv := ytfake.New()
	defer srv.Close()

	ids := make([]string, 0, 120)
	for i := 0; i < 120; i++ {
		ids = append(ids, fmt.Sprintf("sh%09d", i))
	}
	srv.SetPlaylistItems(shortsA, ids...)

	memo := NewShortsMemo(time.Minute)
	cl := NewClassifier(laterPagesMissing{newTestClient(t, srv)}, DefaultShortsConfig(), memo)

	deep := candidate("sh000000110", channelA)
	err := cl.Classify(context.Background(), []*Video{deep})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPlaylistNotFound)
	assert.False(t, deep.IsShort)
	assert.Zero(t, memo.Len(), "a partial scan is not remembered as complete")
}

func TestPointClassifier(t *testing.T) {
	srv := ytfake.New()
	defer srv.Close()
	seedChannel(srv)

	c := newTestClient(t, srv)
	cfg := DefaultShortsConfig()
	cfg.Strategy = StrategyPoint
	cl := NewClassifier(c, cfg, nil)
	require.IsType(t, &PointClassifier{}, cl)

	videos := []*Video{
		candidate("short000001", channelA),
		candidate("notashort01", channelA),
		candidate("chanb000001", channelB),
	}
	require.NoError(t, cl.Classify(context.Background(), videos))

	assert.True(t, videos[0].IsShort)
	assert.False(t, videos[1].IsShort)
	assert.False(t, videos[2].IsShort)
	assert.Equal(t, 3, srv.Calls(ytfake.PlaylistItems), "one lookup per candidate")
	assert.NotEmpty(t, srv.LastQuery(ytfake.PlaylistItems).Get("videoId"))
}
