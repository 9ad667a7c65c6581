package server

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"ytpicker/internal/cache"
	"ytpicker/youtube"
)

const errKeyRequired = "YouTube API key is required"

func (s *Server) apiKey(c fiber.Ctx) string {
	if key := c.Get(APIKeyHeader); key != "" {
		return key
	}
	return s.cfg.APIKey
}

// finder builds a Finder for the caller's key. Clients are reused per key;
// the Shorts memo is shared by all of them.
func (s *Server) finder(ctx context.Context, key string) (*youtube.Finder, error) {
	client, err := s.factory.Client(ctx, key)
	if err != nil {
		return nil, err
	}
	classifier := youtube.NewClassifier(client, s.cfg.Shorts, s.memo)
	return youtube.NewFinder(client, classifier), nil
}

func (s *Server) channelID(c fiber.Ctx) string {
	if id := c.Query("channelId"); id != "" {
		return id
	}
	return s.cfg.ChannelID
}

func (s *Server) maxResults(c fiber.Ctx) int {
	if n, err := strconv.Atoi(c.Query("maxResults")); err == nil {
		return n
	}
	return s.cfg.DefaultMaxResults
}

func (s *Server) order(c fiber.Ctx) string {
	if o := c.Query("order"); o != "" {
		return o
	}
	return s.cfg.DefaultOrder
}

// cached serves a JSON response from the cache or computes, stores and
// sends it. Keys cover the route, the API key and the query string.
func (s *Server) cached(c fiber.Ctx, msg string, compute func(ctx context.Context, f *youtube.Finder) (any, error)) error {
	key := s.apiKey(c)
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": errKeyRequired})
	}

	ctx := c.Context()
	cacheKey := cache.Key(c.Path(), key, string(c.Request().URI().QueryString()))
	if data, ok := s.cache.Get(ctx, cacheKey); ok {
		c.Set("X-Cache", "HIT")
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(data)
	}

	f, err := s.finder(ctx, key)
	if err != nil {
		return s.fail(c, msg, err)
	}
	out, err := compute(ctx, f)
	if err != nil {
		return s.fail(c, msg, err)
	}

	cache.SetJSON(ctx, s.cache, cacheKey, out)
	c.Set("X-Cache", "MISS")
	return c.JSON(out)
}

// cursorLinks lets stateless clients page back and forth without keeping
// token history themselves.
type cursorLinks struct {
	NextCursor string `json:"nextCursor,omitempty"`
	PrevCursor string `json:"prevCursor,omitempty"`
}

type videoPageResponse struct {
	*youtube.VideoPage
	cursorLinks
}

type playlistPageResponse struct {
	*youtube.PlaylistPage
	cursorLinks
}

// pageCursor reads the cursor query parameter. A request without one but
// with a raw pageToken gets a nil cursor and the token as is.
func pageCursor(c fiber.Ctx) (*youtube.Cursor, string, error) {
	raw := c.Query("cursor")
	if raw == "" && c.Query("pageToken") != "" {
		return nil, c.Query("pageToken"), nil
	}
	cur, err := youtube.DecodeCursor(raw)
	if err != nil {
		return nil, "", err
	}
	return cur, cur.Token(), nil
}

func links(cur *youtube.Cursor, next string) cursorLinks {
	if cur == nil {
		return cursorLinks{}
	}
	n, p := cur.Links(next)
	return cursorLinks{NextCursor: n, PrevCursor: p}
}

func (s *Server) videos(c fiber.Ctx) error {
	cur, token, err := pageCursor(c)
	if err != nil {
		return s.fail(c, "Failed to fetch YouTube videos", err)
	}
	q := youtube.VideoQuery{
		ChannelID:  s.channelID(c),
		Search:     c.Query("search"),
		PageToken:  token,
		MaxResults: s.maxResults(c),
		Order:      s.order(c),
		Filter:     youtube.ContentFilter(c.Query("contentFilter")),
	}
	return s.cached(c, "Failed to fetch YouTube videos", func(ctx context.Context, f *youtube.Finder) (any, error) {
		page, err := f.Videos(ctx, q)
		if err != nil {
			return nil, err
		}
		return videoPageResponse{nonNilVideos(page), links(cur, page.NextPageToken)}, nil
	})
}

func (s *Server) shorts(c fiber.Ctx) error {
	cur, token, err := pageCursor(c)
	if err != nil {
		return s.fail(c, "Failed to fetch YouTube Shorts", err)
	}
	q := youtube.ShortsQuery{
		ChannelID:  s.channelID(c),
		Search:     c.Query("search"),
		PageToken:  token,
		MaxResults: s.maxResults(c),
		Order:      s.order(c),
	}
	return s.cached(c, "Failed to fetch YouTube Shorts", func(ctx context.Context, f *youtube.Finder) (any, error) {
		page, err := f.Shorts(ctx, q)
		if err != nil {
			return nil, err
		}
		return videoPageResponse{nonNilVideos(page), links(cur, page.NextPageToken)}, nil
	})
}

func (s *Server) playlists(c fiber.Ctx) error {
	cur, token, err := pageCursor(c)
	if err != nil {
		return s.fail(c, "Failed to fetch YouTube playlists", err)
	}
	q := youtube.PlaylistQuery{
		ChannelID:  s.channelID(c),
		Search:     c.Query("search"),
		PageToken:  token,
		MaxResults: s.maxResults(c),
		Order:      s.order(c),
	}
	return s.cached(c, "Failed to fetch YouTube playlists", func(ctx context.Context, f *youtube.Finder) (any, error) {
		page, err := f.Playlists(ctx, q)
		if err != nil {
			return nil, err
		}
		if page.Playlists == nil {
			page.Playlists = []*youtube.Playlist{}
		}
		return playlistPageResponse{page, links(cur, page.NextPageToken)}, nil
	})
}

func (s *Server) resolve(c fiber.Ctx) error {
	raw := c.Query("url")
	if raw == "" {
		return fiber.NewError(fiber.StatusBadRequest, "url is required")
	}
	return s.cached(c, "Failed to resolve YouTube URL", func(ctx context.Context, f *youtube.Finder) (any, error) {
		return f.Resolve(ctx, raw)
	})
}

func (s *Server) quota(c fiber.Ctx) error {
	key := s.apiKey(c)
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": errKeyRequired})
	}
	client, err := s.factory.Client(c.Context(), key)
	if err != nil {
		return s.fail(c, "Failed to read quota", err)
	}
	return c.JSON(fiber.Map{
		"quota":   client.Quota().Status(),
		"breaker": client.BreakerState(),
	})
}

func nonNilVideos(page *youtube.VideoPage) *youtube.VideoPage {
	if page.Videos == nil {
		page.Videos = []*youtube.Video{}
	}
	return page
}

// fail maps an error onto the response. Upstream failures keep their
// status and reason; anything unexpected becomes a 500 with msg.
func (s *Server) fail(c fiber.Ctx, msg string, err error) error {
	var apiErr *youtube.APIError
	switch {
	case errors.Is(err, youtube.ErrAPIKeyRequired):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": errKeyRequired})
	case isBadRequest(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &apiErr):
		log.Warn().
			Err(err).
			Str("request_id", requestIDOf(c)).
			Int("status", apiErr.Status).
			Str("reason", apiErr.Reason).
			Msg("server: upstream error")
		status := apiErr.Status
		if status == 0 {
			status = fiber.StatusInternalServerError
		}
		return c.Status(status).JSON(fiber.Map{
			"error":   apiErr.Message,
			"details": apiErr.Reason,
		})
	case errors.Is(err, youtube.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	log.Error().Err(err).Str("request_id", requestIDOf(c)).Msg("server: " + msg)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msg})
}

func isBadRequest(err error) bool {
	for _, target := range []error{
		youtube.ErrInvalidOrder,
		youtube.ErrInvalidFilter,
		youtube.ErrInvalidURL,
		youtube.ErrInvalidCursor,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
