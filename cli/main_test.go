package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytpicker/config"
	"ytpicker/youtube"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "a long...", truncate("a long title here", 9))
	assert.Equal(t, "ééé...", truncate("éééééééé", 6))
}

func TestChannelFlag(t *testing.T) {
	a := &app{cfg: config.DefaultConfig()}
	a.cfg.ChannelID = channelA

	got, err := a.channelFlag("")
	require.NoError(t, err)
	assert.Equal(t, channelA, got)

	other := "UC" + "bbbbbbbbbbbbbbbbbbbbbb"
	got, err = a.channelFlag(other)
	require.NoError(t, err)
	assert.Equal(t, other, got)

	got, err = a.channelFlag("https://www.youtube.com/channel/" + other)
	require.NoError(t, err)
	assert.Equal(t, other, got)

	_, err = a.channelFlag("@somebody")
	assert.Error(t, err)
}

// runCLI executes the root command against a config file pointing at fake.
func runCLI(t *testing.T, endpoint string, args ...string) (string, string, error) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "ytpicker.json")
	raw, err := json.Marshal(map[string]any{
		"api_key":             "test-key",
		"youtube_endpoint":    endpoint,
		"requests_per_second": 0,
		"max_retries":         0,
		"default_max_results": 2,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfgPath, raw, 0o600))

	root := newRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestVideosCommandJSON(t *testing.T) {
	fake := newFake(t)
	out, _, err := runCLI(t, fake.Endpoint(), "videos", "--channel", channelA, "--json")
	require.NoError(t, err)

	var page youtube.VideoPage
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Len(t, page.Videos, 2)
	assert.Equal(t, vid(1), page.Videos[0].ID)
	assert.NotEmpty(t, page.NextPageToken)
}

func TestVideosCommandTable(t *testing.T) {
	fake := newFake(t)
	out, errOut, err := runCLI(t, fake.Endpoint(), "videos", "--channel", channelA, "--search", "special")
	require.NoError(t, err)

	assert.Contains(t, out, "VIDEO ID")
	assert.Contains(t, out, vid(5))
	assert.Contains(t, out, "Special clip")
	assert.Contains(t, errOut, "Showing 1 of about 1")
}

func TestVideosCommandBadFilter(t *testing.T) {
	fake := newFake(t)
	_, _, err := runCLI(t, fake.Endpoint(), "videos", "--channel", channelA, "--filter", "reels")
	assert.ErrorIs(t, err, youtube.ErrInvalidFilter)
}

func TestPlaylistsCommand(t *testing.T) {
	fake := newFake(t)
	out, errOut, err := runCLI(t, fake.Endpoint(), "playlists", "--channel", channelA)
	require.NoError(t, err)

	assert.Contains(t, out, "PLa000000001")
	assert.Contains(t, out, "Season two")
	assert.Contains(t, errOut, "Showing 2 of about 2")
}

func TestBrowseCommandPrintsValue(t *testing.T) {
	fake := newFake(t)
	cfgPath := filepath.Join(t.TempDir(), "ytpicker.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"api_key":"test-key","youtube_endpoint":"`+fake.Endpoint()+`","requests_per_second":0,"max_retries":0}`), 0o600))

	root := newRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(bytes.NewBufferString("s 1\nq\n"))
	root.SetArgs([]string{"--config", cfgPath, "browse", "--channel", channelA, "--kind", "video"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	var picked map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &picked))
	assert.Equal(t, vid(1), picked["id"])
	assert.Contains(t, errOut.String(), "VIDEO ID")
}

func TestBrowseCommandRejectsBadKind(t *testing.T) {
	fake := newFake(t)
	_, _, err := runCLI(t, fake.Endpoint(), "browse", "--kind", "channel")
	assert.Error(t, err)
}
