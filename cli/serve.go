package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ytpicker/internal/cache"
	"ytpicker/server"
	"ytpicker/storage"
	"ytpicker/youtube"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the picker HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if addr != "" {
				cfg.ListenAddr = addr
			}
			ctx := cmd.Context()

			store, err := storage.Open(cfg.StoreBackend, cfg.StorePath)
			if err != nil {
				return err
			}
			defer store.Close()

			c := cache.New(ctx, cache.Config{
				TTL:        cfg.CacheTTL,
				MaxEntries: cfg.CacheMaxEntries,
				RedisURL:   cfg.RedisURL,
			})
			defer c.Close()

			if cfg.APIKey == "" {
				log.Warn().Msg("serve: no default API key, requests must send " + server.APIKeyHeader)
			}
			log.Info().
				Str("store", cfg.StoreBackend).
				Str("shorts_strategy", cfg.ShortsStrategy).
				Str("data_format", cfg.DataFormat).
				Msg("serve: starting")

			srvCfg := server.ConfigFrom(cfg)
			app := server.New(server.Deps{
				Config:  srvCfg,
				Factory: youtube.NewFactory(server.ClientOptions(cfg)),
				Store:   store,
				Cache:   c,
				Memo:    youtube.NewShortsMemo(srvCfg.Shorts.CacheTTL),
			})
			return server.Listen(ctx, app, cfg.ListenAddr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides listen_addr)")
	return cmd
}
