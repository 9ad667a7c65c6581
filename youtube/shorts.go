package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	yt "google.golang.org/api/youtube/v3"
)

// Shorts constraints: nothing longer than three minutes, nothing older than
// the feature itself, can be in a Shorts playlist.
const ShortsMaxDuration = 180 * time.Second

// ShortsLaunch is the date YouTube Shorts became available.
var ShortsLaunch = time.Date(2020, time.September, 14, 0, 0, 0, 0, time.UTC)

// Shorts classification strategies.
const (
	StrategyBulk  = "bulk"
	StrategyPoint = "point"
)

// ShortsPlaylistID derives a channel's implicit Shorts playlist from its
// channel ID: "UCxyz" becomes "UUSHxyz".
func ShortsPlaylistID(channelID string) (string, bool) {
	rest, ok := strings.CutPrefix(channelID, "UC")
	if !ok || rest == "" {
		return "", false
	}
	return "UUSH" + rest, true
}

// IsShortCandidate reports whether v could be a Short at all. Videos that
// fail this check are never looked up.
func IsShortCandidate(v *Video) bool {
	if v == nil || v.ContentDetails == nil || v.Snippet == nil {
		return false
	}
	d := ParseDuration(v.ContentDetails.Duration)
	if d <= 0 || d > ShortsMaxDuration {
		return false
	}
	published, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt)
	if err != nil {
		return false
	}
	return !published.Before(ShortsLaunch)
}

// PlaylistItemsLister is the upstream call Shorts classification needs.
type PlaylistItemsLister interface {
	PlaylistItems(ctx context.Context, playlistID, videoID, pageToken string, maxResults int64) (*yt.PlaylistItemListResponse, error)
}

// Classifier sets Video.IsShort in place. Classification is best-effort:
// videos whose lookup failed stay unclassified and the failures are
// returned joined.
type Classifier interface {
	Classify(ctx context.Context, videos []*Video) error
}

// ShortsConfig selects and tunes a Classifier.
type ShortsConfig struct {
	// Strategy is StrategyBulk (default) or StrategyPoint.
	Strategy string
	// ScanLimit caps the items read from one channel's Shorts playlist.
	ScanLimit int
	// CacheTTL is how long a channel's Shorts set is memoised.
	CacheTTL time.Duration
	// Concurrency bounds parallel upstream lookups.
	Concurrency int
}

// DefaultShortsConfig returns the bulk strategy with conservative limits.
func DefaultShortsConfig() ShortsConfig {
	return ShortsConfig{
		Strategy:    StrategyBulk,
		ScanLimit:   500,
		CacheTTL:    10 * time.Minute,
		Concurrency: 4,
	}
}

// NewClassifier builds the classifier cfg selects. memo may be shared
// between API keys and may be nil for the point strategy.
func NewClassifier(lister PlaylistItemsLister, cfg ShortsConfig, memo *ShortsMemo) Classifier {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Strategy == StrategyPoint {
		return &PointClassifier{lister: lister, concurrency: cfg.Concurrency}
	}
	if memo == nil {
		memo = NewShortsMemo(cfg.CacheTTL)
	}
	if cfg.ScanLimit <= 0 {
		cfg.ScanLimit = DefaultShortsConfig().ScanLimit
	}
	return &BulkClassifier{
		lister:      lister,
		memo:        memo,
		scanLimit:   cfg.ScanLimit,
		concurrency: cfg.Concurrency,
	}
}

func isMissingPlaylist(err error) bool {
	return errors.Is(err, ErrPlaylistNotFound) || errors.Is(err, ErrNotFound)
}

// PointClassifier asks the upstream about each candidate separately.
type PointClassifier struct {
	lister      PlaylistItemsLister
	concurrency int
}

// Classify implements Classifier.
func (c *PointClassifier) Classify(ctx context.Context, videos []*Video) error {
	var (
		mu   sync.Mutex
		errs []error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, v := range videos {
		v.IsShort = false
		if !IsShortCandidate(v) {
			continue
		}
		playlistID, ok := ShortsPlaylistID(v.ChannelID())
		if !ok {
			continue
		}
		g.Go(func() error {
			resp, err := c.lister.PlaylistItems(ctx, playlistID, v.ID, "", 1)
			switch {
			case isMissingPlaylist(err):
				return nil
			case err != nil:
				mu.Lock()
				errs = append(errs, fmt.Errorf("classify %s: %w", v.ID, err))
				mu.Unlock()
				return nil
			}
			v.IsShort = len(resp.Items) > 0
			return nil
		})
	}

	_ = g.Wait()
	return errors.Join(errs...)
}

// BulkClassifier enumerates each channel's Shorts playlist once and answers
// every candidate of that channel from the resulting set.
type BulkClassifier struct {
	lister      PlaylistItemsLister
	memo        *ShortsMemo
	scanLimit   int
	concurrency int
}

// Classify implements Classifier.
func (c *BulkClassifier) Classify(ctx context.Context, videos []*Video) error {
	byChannel := make(map[string][]*Video)
	var channels []string
	for _, v := range videos {
		v.IsShort = false
		if !IsShortCandidate(v) {
			continue
		}
		ch := v.ChannelID()
		if _, ok := ShortsPlaylistID(ch); !ok {
			continue
		}
		if _, seen := byChannel[ch]; !seen {
			channels = append(channels, ch)
		}
		byChannel[ch] = append(byChannel[ch], v)
	}
	if len(channels) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, ch := range channels {
		candidates := byChannel[ch]
		g.Go(func() error {
			set, err := c.channelShorts(ctx, ch, candidates)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("classify channel %s: %w", ch, err))
				mu.Unlock()
				return nil
			}
			for _, v := range candidates {
				v.IsShort = set.Has(v.ID)
			}
			return nil
		})
	}

	_ = g.Wait()
	return errors.Join(errs...)
}

// channelShorts returns a set of the channel's Shorts that is guaranteed to
// answer every candidate.
func (c *BulkClassifier) channelShorts(ctx context.Context, channelID string, candidates []*Video) (*ShortsSet, error) {
	if set, ok := c.memo.Get(channelID); ok && set.Answers(candidates) {
		return set, nil
	}

	playlistID, _ := ShortsPlaylistID(channelID)
	pending := make(map[string]bool, len(candidates))
	for _, v := range candidates {
		pending[v.ID] = true
	}

	set := &ShortsSet{ids: make(map[string]struct{}), misses: make(map[string]struct{})}
	pageToken := ""
	for {
		resp, err := c.lister.PlaylistItems(ctx, playlistID, "", pageToken, MaxPageSize)
		// Only a missing first page means the channel has no Shorts.
		if pageToken == "" && isMissingPlaylist(err) {
			set.complete = true
			break
		}
		if err != nil {
			return nil, err
		}

		for _, item := range resp.Items {
			if item.ContentDetails == nil {
				continue
			}
			id := item.ContentDetails.VideoId
			set.ids[id] = struct{}{}
			delete(pending, id)
		}
		set.scanned += len(resp.Items)

		pageToken = resp.NextPageToken
		if pageToken == "" {
			set.complete = true
			break
		}
		if len(pending) == 0 || set.scanned >= c.scanLimit {
			break
		}
	}

	if !set.complete && len(pending) > 0 {
		log.Debug().
			Str("channel", channelID).
			Int("scanned", set.scanned).
			Int("unresolved", len(pending)).
			Msg("youtube: shorts scan limit reached")
		// Not seen within the scan limit: treated as regular videos.
		for id := range pending {
			set.misses[id] = struct{}{}
		}
	}

	c.memo.Put(channelID, set)
	return set, nil
}

// ShortsSet is the known membership of one channel's Shorts playlist.
type ShortsSet struct {
	ids      map[string]struct{}
	misses   map[string]struct{}
	scanned  int
	complete bool
}

// Has reports whether id is a known Short.
func (s *ShortsSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of known Shorts.
func (s *ShortsSet) Len() int {
	return len(s.ids)
}

// Answers reports whether the set decides membership for every video: it
// either covers the whole playlist or already resolved each of them.
func (s *ShortsSet) Answers(videos []*Video) bool {
	if s.complete {
		return true
	}
	for _, v := range videos {
		if _, missed := s.misses[v.ID]; !s.Has(v.ID) && !missed {
			return false
		}
	}
	return true
}

// ShortsMemo memoises ShortsSets per channel for a TTL.
type ShortsMemo struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoEntry
}

type memoEntry struct {
	set       *ShortsSet
	expiresAt time.Time
}

// NewShortsMemo creates a memo. A zero ttl disables memoisation.
func NewShortsMemo(ttl time.Duration) *ShortsMemo {
	return &ShortsMemo{ttl: ttl, now: time.Now, entries: make(map[string]memoEntry)}
}

// Get returns the live set for channelID.
func (m *ShortsMemo) Get(channelID string) (*ShortsSet, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[channelID]
	if !ok {
		return nil, false
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, channelID)
		return nil, false
	}
	return e.set, true
}

// Put stores set for channelID.
func (m *ShortsMemo) Put(channelID string, set *ShortsSet) {
	if m.ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[channelID] = memoEntry{set: set, expiresAt: m.now().Add(m.ttl)}
}

// Len returns the number of memoised channels, expired ones included.
func (m *ShortsMemo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
