package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ytpicker/config"
	"ytpicker/server"
	"ytpicker/youtube"
)

// app carries state shared by every command once PersistentPreRunE ran.
type app struct {
	configPath string
	apiKey     string
	debug      bool

	cfg *config.Config
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "ytpicker",
		Short: "YouTube video, Shorts and playlist picker backend",
		Long: `ytpicker serves the YouTube picker API used by CMS field types and
lets you browse a channel's videos, Shorts and playlists from the terminal.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default ./ytpicker.json or ~/.config/ytpicker/ytpicker.json)")
	root.PersistentFlags().StringVar(&a.apiKey, "api-key", "", "YouTube Data API key (overrides config)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newServeCommand(a),
		newVideosCommand(a),
		newShortsCommand(a),
		newPlaylistsCommand(a),
		newBrowseCommand(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.LoadFile(a.configPath)
	if err != nil {
		return err
	}
	if a.apiKey != "" {
		cfg.APIKey = a.apiKey
	}
	a.cfg = cfg

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if a.debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

// finder builds a Finder for the configured key.
func (a *app) finder(cmd *cobra.Command) (*youtube.Finder, error) {
	client, err := youtube.NewClient(cmd.Context(), a.cfg.APIKey, server.ClientOptions(a.cfg))
	if err != nil {
		return nil, err
	}
	shorts := server.ConfigFrom(a.cfg).Shorts
	return youtube.NewFinder(client, youtube.NewClassifier(client, shorts, nil)), nil
}

// channelFlag resolves a channel given as ID or /channel/ URL, falling
// back to the configured channel.
func (a *app) channelFlag(raw string) (string, error) {
	if raw == "" {
		return a.cfg.ChannelID, nil
	}
	if youtube.IsValidChannelID(raw) {
		return raw, nil
	}
	if id, ok := youtube.ExtractChannelID(raw); ok {
		return id, nil
	}
	return "", fmt.Errorf("invalid channel %q (use a UC... ID or a /channel/ URL)", raw)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n-3])) + "..."
}
