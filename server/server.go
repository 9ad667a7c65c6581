// Package server exposes the picker over HTTP: YouTube browsing routes used
// by the picker modals and field value routes used by the CMS fields.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"ytpicker/config"
	"ytpicker/field"
	"ytpicker/internal/cache"
	"ytpicker/storage"
	"ytpicker/youtube"
)

// APIKeyHeader carries the caller's YouTube Data API key.
const APIKeyHeader = "X-YouTube-API-Key"

// RequestIDHeader is echoed on every response.
const RequestIDHeader = "X-Request-ID"

// Config holds request defaults.
type Config struct {
	// APIKey is used when a request carries no key header.
	APIKey string
	// ChannelID is used when a request names no channel.
	ChannelID         string
	DefaultMaxResults int
	DefaultOrder      string
	Format            field.Format
	FieldOptions      field.Options
	Shorts            youtube.ShortsConfig
}

// ConfigFrom maps application configuration onto server defaults.
func ConfigFrom(c *config.Config) Config {
	return Config{
		APIKey:            c.APIKey,
		ChannelID:         c.ChannelID,
		DefaultMaxResults: c.DefaultMaxResults,
		DefaultOrder:      c.DefaultOrder,
		Format:            field.Format(c.DataFormat),
		FieldOptions: field.Options{
			IncludeTags:        c.IncludeTags,
			IncludeDescription: c.IncludeDescription,
		},
		Shorts: youtube.ShortsConfig{
			Strategy:    c.ShortsStrategy,
			ScanLimit:   c.ShortsScanLimit,
			CacheTTL:    c.ShortsCacheTTL,
			Concurrency: c.ShortsConcurrency,
		},
	}
}

// ClientOptions maps application configuration onto Data API client options.
func ClientOptions(c *config.Config) youtube.Options {
	opts := youtube.DefaultOptions()
	opts.Endpoint = c.YouTubeEndpoint
	opts.QuotaReserve = c.QuotaReserve
	opts.Transport.RequestsPerSecond = c.RequestsPerSecond
	opts.Transport.Timeout = c.RequestTimeout
	opts.MaxClients = c.MaxClients
	opts.ClientIdleTTL = c.ClientIdleTTL
	opts.Retry.MaxRetries = c.MaxRetries
	opts.Retry.InitialBackoff = c.InitialBackoff
	opts.Retry.MaxBackoff = c.MaxBackoff
	opts.Retry.Multiplier = c.BackoffMultiplier
	return opts
}

// Deps are the collaborators of the HTTP server.
type Deps struct {
	Config  Config
	Factory *youtube.Factory
	Store   storage.FieldStore
	// Cache may be nil.
	Cache *cache.Cache
	// Memo is shared by the Shorts classifiers of every key; nil gets a
	// fresh memo.
	Memo *youtube.ShortsMemo
}

// Server holds handler state.
type Server struct {
	cfg     Config
	factory *youtube.Factory
	store   storage.FieldStore
	cache   *cache.Cache
	memo    *youtube.ShortsMemo
	started time.Time
}

// New builds the fiber application with all routes registered.
func New(deps Deps) *fiber.App {
	s := &Server{
		cfg:     deps.Config,
		factory: deps.Factory,
		store:   deps.Store,
		cache:   deps.Cache,
		memo:    deps.Memo,
		started: time.Now(),
	}
	if s.memo == nil {
		s.memo = youtube.NewShortsMemo(s.cfg.Shorts.CacheTTL)
	}
	if s.cfg.Format == "" {
		s.cfg.Format = field.FormatSimplified
	}

	app := fiber.New(fiber.Config{
		AppName:      "ytpicker",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(requestID)
	app.Use(accessLog)

	app.Get("/health", s.health)

	yt := app.Group("/api/youtube")
	yt.Get("/videos", s.videos)
	yt.Get("/playlists", s.playlists)
	yt.Get("/shorts", s.shorts)
	yt.Get("/resolve", s.resolve)
	yt.Get("/quota", s.quota)

	app.Get("/api/fields/:item", s.listFields)
	app.Get("/api/fields/:item/:field", s.getField)
	app.Put("/api/fields/:item/:field", s.putField)
	app.Delete("/api/fields/:item/:field", s.deleteField)

	return app
}

// Listen serves app on addr until ctx is done, then shuts down gracefully.
func Listen(ctx context.Context, app *fiber.App, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	log.Info().Str("addr", addr).Msg("server: listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

func (s *Server) health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "healthy",
		"service":     "ytpicker",
		"uptime":      time.Since(s.started).Round(time.Second).String(),
		"clients":     s.factory.Len(),
		"shorts_memo": s.memo.Len(),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

func requestID(c fiber.Ctx) error {
	id := c.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Locals("request_id", id)
	c.Set(RequestIDHeader, id)
	return c.Next()
}

func accessLog(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}

	ev := log.Info()
	if status >= fiber.StatusInternalServerError {
		ev = log.Warn()
	}
	ev.Str("request_id", requestIDOf(c)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", status).
		Dur("latency", time.Since(start)).
		Msg("server: request")
	return err
}

func requestIDOf(c fiber.Ctx) string {
	id, _ := c.Locals("request_id").(string)
	return id
}

// errorHandler renders errors that escape handlers as {"error": message}.
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		log.Error().Err(err).Str("request_id", requestIDOf(c)).Msg("server: unhandled error")
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
