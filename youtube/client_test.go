package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytpicker/internal/retry"
	"ytpicker/internal/ytfake"
)

var (
	channelA  = "UC" + strings.Repeat("a", 22)
	channelB  = "UC" + strings.Repeat("b", 22)
	shortsA   = "UUSH" + strings.Repeat("a", 22)
	recent    = time.Date(2023, time.March, 1, 12, 0, 0, 0, time.UTC)
	preLaunch = time.Date(2019, time.June, 1, 12, 0, 0, 0, time.UTC)
)

func testOptions(srv *ytfake.Server) Options {
	opts := DefaultOptions()
	opts.Endpoint = srv.Endpoint()
	opts.Transport.RequestsPerSecond = 0
	opts.Retry = retry.Config{
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2,
	}
	return opts
}

func newTestClient(t *testing.T, srv *ytfake.Server) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), "test-key", testOptions(srv))
	require.NoError(t, err)
	return c
}

// seedChannel registers a channel with two Shorts, one long video and one
// short pre-launch clip, plus a second channel without a Shorts playlist.
func seedChannel(srv *ytfake.Server) {
	srv.AddVideos(
		ytfake.Video{ID: "long0000001", ChannelID: channelA, Title: "Long talk", Duration: "PT12M3S", PublishedAt: recent, Views: 1500},
		ytfake.Video{ID: "short000001", ChannelID: channelA, Title: "Quick tip", Duration: "PT45S", PublishedAt: recent, Views: 20},
		ytfake.Video{ID: "short000002", ChannelID: channelA, Title: "Quick trick", Duration: "PT30S", PublishedAt: recent},
		ytfake.Video{ID: "clip0000001", ChannelID: channelA, Title: "Old clip", Duration: "PT50S", PublishedAt: preLaunch},
		ytfake.Video{ID: "chanb000001", ChannelID: channelB, Title: "Other quick one", Duration: "PT20S", PublishedAt: recent},
	)
	srv.SetPlaylistItems(shortsA, "short000001", "short000002")
	srv.AddPlaylists(
		ytfake.Playlist{ID: "PLa000000001", ChannelID: channelA, Title: "Talks", ItemCount: 4, PublishedAt: recent},
		ytfake.Playlist{ID: "PLa000000002", ChannelID: channelA, Title: "Tips and tricks", ItemCount: 2, PublishedAt: recent},
		ytfake.Playlist{ID: "PLb000000001", ChannelID: channelB, Title: "Other tips", ItemCount: 9, PublishedAt: recent},
	)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "", DefaultOptions())
	assert.ErrorIs(t, err, ErrAPIKeyRequired)
}

func TestClientSendsKeyAndParts(t *testing.T) {
	srv := ytfake.New()
	defer srv.Close()
	seedChannel(srv)

	c := newTestClient(t, srv)
	items, err := c.VideosByID(context.Background(), []string{"long0000001", "short000001"})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	q := srv.LastQuery(ytfake.Videos)
	assert.Equal(t, "test-key", q.Get("key"))
	assert.ElementsMatch(t, []string{"snippet", "contentDetails", "statistics"}, splitMulti(q["part"]))
	assert.Equal(t, 1, srv.KeyCalls("test-key"))
}

func TestClientSkipsEmptyLookups(t *testing.T) {
	srv := ytfake.New()
	defer srv.Close()

	c := newTestClient(t, srv)
	videos, err := c.VideosByID(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, videos)

	playlists, err := c.PlaylistsByID(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, playlists)

	assert.Zero(t, srv.Calls(ytfake.Videos))
	assert.Zero(t, srv.Calls(ytfake.Playlists))
}

func TestClientSearchParameters(t *testing.T) {
	srv := ytfake.New()
	defer srv.Close()
	seedChannel(srv)

	c := newTestClient(t, srv)
	_, err := c.Search(context.Background(), SearchParams{
		Type:          "video",
		Query:         "quick",
		ChannelID:     channelA,
		Order:         "viewCount",
		PageToken:     "OFF2",
		MaxResults:    10,
		VideoDuration: "short",
	})
	require.NoError(t, err)

	q := srv.LastQuery(ytfake.Search)
	assert.Equal(t, "video", q.Get("type"))
	assert.Equal(t, "quick", q.Get("q"))
	assert.Equal(t, channelA, q.Get("channelId"))
	assert.Equal(t, "viewCount", q.Get("order"))
	assert.Equal(t, "OFF2", q.Get("pageToken"))
	assert.Equal(t, "10", q.Get("maxResults"))
	assert.Equal(t, "short", q.Get("videoDuration"))
	assert.Equal(t, "none", q.Get("safeSearch"))
}

func TestClientMapsUpstreamErrors(t *testing.T) {
	srv := ytfake.New()
	defer srv.Close()
	srv.Fail(ytfake.Search, http.StatusForbidden, "quotaExceeded", 0)

	c := newTestClient(t, srv)
	_, err := c.Search(context.Background(), SearchParams{Type: "video"})
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, http.StatusForbidden, StatusOf(err))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "quotaExceeded", apiErr.Reason)
	assert.Equal(t, "search.list", apiErr.Op)
	assert.Equal(t, 1, srv.Calls(ytfake.Search), "quota errors must not be retried")
}

func TestClientRetriesServerErrors(t *testing.T) {
	srv := ytfake.New()
	defer srv.Close()
	seedChannel(srv)
	srv.Fail(ytfake.Videos, http.StatusServiceUnavailable, "backendError", 1)

	c := newTestClient(t, srv)
	items, err := c.VideosByID(context.Background(), []string{"long0000001"})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 2, srv.Calls(ytfake.Videos))
}

func TestClientPlaylistNotFound(t *testing.T) {
	srv := ytfake.New()
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.PlaylistItems(context.Background(), "UUSHmissing", "", "", 50)
	assert.ErrorIs(t, err, ErrPlaylistNotFound)
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
}

func TestClientTracksQuota(t *testing.T) {
	srv := ytfake.New()
	defer srv.Close()
	seedChannel(srv)

	c := newTestClient(t, srv)
	ctx := context.Background()

	_, err := c.Search(ctx, SearchParams{Type: "video"})
	require.NoError(t, err)
	_, err = c.VideosByID(ctx, []string{"long0000001"})
	require.NoError(t, err)

	assert.Equal(t, DefaultDailyQuota-searchCost-listCost, c.Quota().Remaining())
	assert.False(t, c.Quota().Exhausted())
}

func TestQuotaReserveAndReset(t *testing.T) {
	now := time.Date(2024, time.May, 1, 8, 0, 0, 0, time.UTC)
	q := NewQuota(250, 100)
	q.now = func() time.Time { return now }
	q.resetAt = now.Add(24 * time.Hour)

	q.Track(100)
	assert.False(t, q.Exhausted())
	q.Track(100)
	assert.True(t, q.Exhausted())
	assert.Equal(t, 50, q.Remaining())

	now = now.Add(25 * time.Hour)
	status := q.Status()
	assert.False(t, status.Exhausted)
	assert.Equal(t, 250, status.Remaining)
	assert.Equal(t, now.Add(24*time.Hour), status.ResetAt)
}

func TestFactoryCachesPerKey(t *testing.T) {
	srv := ytfake.New()
	defer srv.Close()

	f := NewFactory(testOptions(srv))
	ctx := context.Background()

	_, err := f.Client(ctx, "")
	assert.ErrorIs(t, err, ErrAPIKeyRequired)

	a1, err := f.Client(ctx, "key-a")
	require.NoError(t, err)
	a2, err := f.Client(ctx, "key-a")
	require.NoError(t, err)
	b, err := f.Client(ctx, "key-b")
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.Equal(t, 2, f.Len())

	_, err = b.Search(ctx, SearchParams{Type: "video"})
	require.NoError(t, err)
	assert.Equal(t, 1, srv.KeyCalls("key-b"))
	assert.Zero(t, srv.KeyCalls("key-a"))
	assert.Equal(t, DefaultDailyQuota, a1.Quota().Remaining(), "quota is tracked per key")
}

func TestFactoryBoundsClients(t *testing.T) {
	srv := ytfake.New()
	defer srv.Close()

	opts := testOptions(srv)
	opts.MaxClients = 3
	f := NewFactory(opts)
	now := time.Now()
	f.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	ctx := context.Background()

	keep, err := f.Client(ctx, "keep")
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		_, err := f.Client(ctx, fmt.Sprintf("junk-%d", i))
		require.NoError(t, err)
		// Recently used keys survive eviction.
		again, err := f.Client(ctx, "keep")
		require.NoError(t, err)
		require.Same(t, keep, again)
		require.LessOrEqual(t, f.Len(), 3)
	}
	assert.Equal(t, 3, f.Len())
}

func TestFactoryExpiresIdleClients(t *testing.T) {
	srv := ytfake.New()
	defer srv.Close()

	opts := testOptions(srv)
	opts.ClientIdleTTL = time.Minute
	f := NewFactory(opts)
	now := time.Now()
	f.now = func() time.Time { return now }
	ctx := context.Background()

	old, err := f.Client(ctx, "old")
	require.NoError(t, err)
	_, err = f.Client(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())

	now = now.Add(2 * time.Minute)
	_, err = f.Client(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, 1, f.Len(), "idle clients are dropped")

	renewed, err := f.Client(ctx, "old")
	require.NoError(t, err)
	assert.NotSame(t, old, renewed)
}

func splitMulti(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.Split(v, ",")...)
	}
	return out
}
