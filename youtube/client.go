package youtube

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"ytpicker/internal/retry"
	"ytpicker/internal/transport"
)

// Quota costs of the Data API calls used here.
const (
	DefaultDailyQuota = 10000
	searchCost        = 100
	listCost          = 1
)

// MaxPageSize is the largest maxResults the Data API accepts.
const MaxPageSize = 50

// Factory bounds.
const (
	DefaultMaxClients    = 256
	DefaultClientIdleTTL = 30 * time.Minute
)

var (
	videoParts    = []string{"snippet", "contentDetails", "statistics"}
	playlistParts = []string{"snippet", "contentDetails"}
)

// Options configures how clients reach the Data API.
type Options struct {
	// Endpoint overrides the API base URL, e.g. a local fake in tests.
	Endpoint string
	// Transport configures pacing, timeouts and the circuit breaker.
	Transport transport.Config
	// Retry configures backoff for transient failures.
	Retry retry.Config
	// DailyQuota is the estimated daily budget per key (default 10000).
	DailyQuota int
	// QuotaReserve is the number of units below which a key is reported as exhausted.
	QuotaReserve int
	// Base is the shared round tripper under every key's transport.
	Base http.RoundTripper
	// MaxClients caps how many per-key clients a Factory keeps (default 256).
	MaxClients int
	// ClientIdleTTL drops a Factory client unused for this long (default
	// 30m, negative disables).
	ClientIdleTTL time.Duration
}

// DefaultOptions returns options pointing at the public API.
func DefaultOptions() Options {
	return Options{
		Transport:     transport.DefaultConfig(),
		Retry:         retry.DefaultConfig(),
		DailyQuota:    DefaultDailyQuota,
		MaxClients:    DefaultMaxClients,
		ClientIdleTTL: DefaultClientIdleTTL,
	}
}

// SearchParams are the search.list parameters the picker uses.
type SearchParams struct {
	// Type is "video" or "playlist".
	Type          string
	Query         string
	ChannelID     string
	Order         string
	PageToken     string
	MaxResults    int64
	VideoDuration string
}

// Client talks to the Data API with one API key.
type Client struct {
	service   *yt.Service
	transport *transport.Transport
	retryCfg  retry.Config
	quota     *Quota
}

// NewClient creates a client authenticated with apiKey.
func NewClient(ctx context.Context, apiKey string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	if opts.DailyQuota <= 0 {
		opts.DailyQuota = DefaultDailyQuota
	}

	tr := transport.New(apiKey, opts.Base, opts.Transport)
	clientOpts := []option.ClientOption{
		option.WithHTTPClient(&http.Client{Timeout: opts.Transport.Timeout, Transport: tr}),
	}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	service, err := yt.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	return &Client{
		service:   service,
		transport: tr,
		retryCfg:  opts.Retry,
		quota:     NewQuota(opts.DailyQuota, opts.QuotaReserve),
	}, nil
}

// Quota returns the key's quota tracker.
func (c *Client) Quota() *Quota {
	return c.quota
}

// BreakerState reports the key's circuit breaker state.
func (c *Client) BreakerState() string {
	return c.transport.BreakerState()
}

func (c *Client) do(ctx context.Context, op string, cost int, fn func(context.Context) error) error {
	err := retry.Do(ctx, c.retryCfg, retry.IsRetryable, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		c.quota.Track(cost)
		return nil
	})
	if err != nil {
		log.Debug().Err(err).Str("op", op).Msg("youtube: call failed")
		return wrapAPIError(op, err)
	}
	return nil
}

// Search runs search.list.
func (c *Client) Search(ctx context.Context, p SearchParams) (*yt.SearchListResponse, error) {
	var resp *yt.SearchListResponse
	err := c.do(ctx, "search.list", searchCost, func(ctx context.Context) error {
		call := c.service.Search.List([]string{"snippet"}).
			Type(p.Type).
			SafeSearch("none").
			Context(ctx)
		if p.Query != "" {
			call = call.Q(p.Query)
		}
		if p.ChannelID != "" {
			call = call.ChannelId(p.ChannelID)
		}
		if p.Order != "" {
			call = call.Order(p.Order)
		}
		if p.PageToken != "" {
			call = call.PageToken(p.PageToken)
		}
		if p.MaxResults > 0 {
			call = call.MaxResults(p.MaxResults)
		}
		if p.VideoDuration != "" {
			call = call.VideoDuration(p.VideoDuration)
		}
		r, err := call.Do()
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	return resp, err
}

// VideosByID runs videos.list for up to 50 IDs. The API may return fewer
// items than requested and in any order.
func (c *Client) VideosByID(ctx context.Context, ids []string) ([]*yt.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []*yt.Video
	err := c.do(ctx, "videos.list", listCost, func(ctx context.Context) error {
		r, err := c.service.Videos.List(videoParts).
			Id(ids...).
			MaxResults(MaxPageSize).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		items = r.Items
		return nil
	})
	return items, err
}

// PlaylistsByID runs playlists.list for up to 50 IDs.
func (c *Client) PlaylistsByID(ctx context.Context, ids []string) ([]*yt.Playlist, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []*yt.Playlist
	err := c.do(ctx, "playlists.list", listCost, func(ctx context.Context) error {
		r, err := c.service.Playlists.List(playlistParts).
			Id(ids...).
			MaxResults(MaxPageSize).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		items = r.Items
		return nil
	})
	return items, err
}

// ChannelPlaylists runs playlists.list for a channel.
func (c *Client) ChannelPlaylists(ctx context.Context, channelID, pageToken string, maxResults int64) (*yt.PlaylistListResponse, error) {
	var resp *yt.PlaylistListResponse
	err := c.do(ctx, "playlists.list", listCost, func(ctx context.Context) error {
		call := c.service.Playlists.List(playlistParts).
			ChannelId(channelID).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		if maxResults > 0 {
			call = call.MaxResults(maxResults)
		}
		r, err := call.Do()
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	return resp, err
}

// PlaylistItems runs playlistItems.list. When videoID is set only the
// membership of that video is queried.
func (c *Client) PlaylistItems(ctx context.Context, playlistID, videoID, pageToken string, maxResults int64) (*yt.PlaylistItemListResponse, error) {
	var resp *yt.PlaylistItemListResponse
	err := c.do(ctx, "playlistItems.list", listCost, func(ctx context.Context) error {
		call := c.service.PlaylistItems.List([]string{"contentDetails"}).
			PlaylistId(playlistID).
			Context(ctx)
		if videoID != "" {
			call = call.VideoId(videoID)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		if maxResults > 0 {
			call = call.MaxResults(maxResults)
		}
		r, err := call.Do()
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	return resp, err
}

// Quota estimates the remaining daily units for one key. The estimate is
// advisory; the upstream remains the authority.
type Quota struct {
	mu        sync.Mutex
	limit     int
	reserve   int
	remaining int
	resetAt   time.Time
	exhausted bool
	now       func() time.Time
}

// QuotaStatus is a snapshot of a Quota.
type QuotaStatus struct {
	Limit     int       `json:"limit"`
	Reserve   int       `json:"reserve"`
	Remaining int       `json:"remaining"`
	Exhausted bool      `json:"exhausted"`
	ResetAt   time.Time `json:"resetAt"`
}

// NewQuota creates a tracker with a daily limit and reserve.
func NewQuota(limit, reserve int) *Quota {
	q := &Quota{limit: limit, reserve: reserve, now: time.Now}
	q.remaining = limit
	q.resetAt = q.now().Add(24 * time.Hour)
	return q
}

// Track deducts units, resetting the budget once a day has passed.
func (q *Quota) Track(units int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.maybeReset()
	q.remaining -= units

	if q.remaining < q.reserve {
		if !q.exhausted {
			log.Warn().
				Int("quota_remaining", q.remaining).
				Int("quota_reserve", q.reserve).
				Msg("youtube: quota exhausted")
			q.exhausted = true
		}
		return
	}
	log.Debug().Int("quota_remaining", q.remaining).Msg("youtube: quota usage")
}

func (q *Quota) maybeReset() {
	if q.now().Before(q.resetAt) {
		return
	}
	q.remaining = q.limit
	q.resetAt = q.now().Add(24 * time.Hour)
	q.exhausted = false
	log.Info().Msg("youtube: quota reset (new day)")
}

// Remaining returns the estimated remaining units.
func (q *Quota) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.maybeReset()
	return q.remaining
}

// Exhausted reports whether the estimate fell below the reserve.
func (q *Quota) Exhausted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.maybeReset()
	return q.exhausted
}

// Status returns a snapshot.
func (q *Quota) Status() QuotaStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.maybeReset()
	return QuotaStatus{
		Limit:     q.limit,
		Reserve:   q.reserve,
		Remaining: q.remaining,
		Exhausted: q.exhausted,
		ResetAt:   q.resetAt,
	}
}

// Factory builds one Client per API key and reuses it for later requests
// with the same key. Keys arrive from request headers, so the set is
// bounded: idle clients expire and the least recently used one makes room
// when the factory is full. An evicted key starts over with a fresh quota
// estimate and breaker.
type Factory struct {
	opts       Options
	maxClients int
	idleTTL    time.Duration
	now        func() time.Time

	mu      sync.Mutex
	clients map[string]*factoryEntry
}

type factoryEntry struct {
	client   *Client
	lastUsed time.Time
}

// NewFactory creates a Factory. A nil opts.Base gets a pooled transport
// shared by every key.
func NewFactory(opts Options) *Factory {
	if opts.Base == nil {
		opts.Base = transport.NewPool()
	}
	if opts.MaxClients <= 0 {
		opts.MaxClients = DefaultMaxClients
	}
	if opts.ClientIdleTTL == 0 {
		opts.ClientIdleTTL = DefaultClientIdleTTL
	}
	return &Factory{
		opts:       opts,
		maxClients: opts.MaxClients,
		idleTTL:    opts.ClientIdleTTL,
		now:        time.Now,
		clients:    make(map[string]*factoryEntry),
	}
}

// Client returns the client for apiKey, creating it on first use.
func (f *Factory) Client(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	if e, ok := f.clients[apiKey]; ok {
		e.lastUsed = now
		return e.client, nil
	}
	c, err := NewClient(ctx, apiKey, f.opts)
	if err != nil {
		return nil, err
	}
	f.evictLocked(now)
	f.clients[apiKey] = &factoryEntry{client: c, lastUsed: now}
	return c, nil
}

// evictLocked drops idle clients, then the least recently used one if
// there is still no room for another.
func (f *Factory) evictLocked(now time.Time) {
	var (
		lruKey string
		lruAt  time.Time
	)
	for key, e := range f.clients {
		if f.idleTTL > 0 && now.Sub(e.lastUsed) > f.idleTTL {
			delete(f.clients, key)
			continue
		}
		if lruKey == "" || e.lastUsed.Before(lruAt) {
			lruKey, lruAt = key, e.lastUsed
		}
	}
	if len(f.clients) >= f.maxClients && lruKey != "" {
		delete(f.clients, lruKey)
		log.Debug().Int("max", f.maxClients).Msg("youtube: client factory full, evicted least recently used key")
	}
}

// Len returns the number of cached clients.
func (f *Factory) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}
