package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ytpicker/field"
	"ytpicker/youtube"
)

const browseHelp = `Commands:
  n          next page
  p          previous page
  s <n>      toggle row n on this page
  m <a> <b>  move selected entry a to position b (videos fields)
  /<term>    search, / alone clears the search
  c          clear the selection
  l          list the selection
  q          finish and print the field value`

func newBrowseCommand(a *app) *cobra.Command {
	var (
		channel string
		kind    string
		format  string
		shorts  bool
		initial string
	)
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Page through a channel and pick a field value",
		Long: `browse pages through a channel's videos, Shorts or playlists and
prints the encoded field value for what you picked when you quit.

` + browseHelp,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ch, err := a.channelFlag(channel)
			if err != nil {
				return err
			}
			k, err := field.ParseKind(kind)
			if err != nil {
				return err
			}
			if format == "" {
				format = a.cfg.DataFormat
			}
			fm, err := field.ParseFormat(format)
			if err != nil {
				return err
			}
			f, err := a.finder(cmd)
			if err != nil {
				return err
			}

			b := newBrowser(f, browseOptions{
				Kind:       k,
				Format:     fm,
				Options:    field.Options{IncludeTags: a.cfg.IncludeTags, IncludeDescription: a.cfg.IncludeDescription},
				ChannelID:  ch,
				Shorts:     shorts,
				MaxResults: a.cfg.DefaultMaxResults,
				Order:      a.cfg.DefaultOrder,
			}, cmd.InOrStdin(), cmd.ErrOrStderr())
			if initial != "" {
				if err := b.restore(initial); err != nil {
					return err
				}
			}

			value, err := b.run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "Channel ID or /channel/ URL")
	cmd.Flags().StringVar(&kind, "kind", string(field.KindVideos), "Field kind: video, videos, playlist")
	cmd.Flags().StringVar(&format, "format", "", "Data format: simplified, legacy (default from config)")
	cmd.Flags().BoolVar(&shorts, "shorts", false, "Browse Shorts only")
	cmd.Flags().StringVar(&initial, "value", "", "Start from an existing legacy videos value")
	return cmd
}

type browseOptions struct {
	Kind       field.Kind
	Format     field.Format
	Options    field.Options
	ChannelID  string
	Shorts     bool
	MaxResults int
	Order      string
}

// browser is the interactive picker behind the browse command. Prompts and
// pages go to out; commands are read line by line from in.
type browser struct {
	finder *youtube.Finder
	opts   browseOptions
	in     *bufio.Scanner
	out    io.Writer
	now    func() time.Time

	search    string
	videos    *youtube.Pager[*youtube.VideoPage]
	playlists *youtube.Pager[*youtube.PlaylistPage]
	vpage     *youtube.VideoPage
	ppage     *youtube.PlaylistPage

	selection *field.Selection
	video     *youtube.Video
	playlist  *youtube.Playlist
}

func newBrowser(f *youtube.Finder, opts browseOptions, in io.Reader, out io.Writer) *browser {
	b := &browser{
		finder:    f,
		opts:      opts,
		in:        bufio.NewScanner(in),
		out:       out,
		now:       time.Now,
		selection: field.NewSelection(),
	}
	b.resetPager()
	return b
}

// restore seeds the selection from a stored legacy value.
func (b *browser) restore(value string) error {
	if b.opts.Kind != field.KindVideos {
		return errors.New("--value is only supported for videos fields")
	}
	sel, err := field.DecodeSelection(value)
	if err != nil {
		return err
	}
	b.selection = sel
	return nil
}

func (b *browser) resetPager() {
	b.videos, b.playlists = nil, nil
	b.vpage, b.ppage = nil, nil
	switch {
	case b.opts.Kind == field.KindPlaylist:
		b.playlists = youtube.NewPlaylistPager(b.finder, youtube.PlaylistQuery{
			ChannelID:  b.opts.ChannelID,
			Search:     b.search,
			MaxResults: b.opts.MaxResults,
			Order:      b.opts.Order,
		})
	case b.opts.Shorts:
		b.videos = youtube.NewShortsPager(b.finder, youtube.ShortsQuery{
			ChannelID:  b.opts.ChannelID,
			Search:     b.search,
			MaxResults: b.opts.MaxResults,
			Order:      b.opts.Order,
		})
	default:
		b.videos = youtube.NewVideoPager(b.finder, youtube.VideoQuery{
			ChannelID:  b.opts.ChannelID,
			Search:     b.search,
			MaxResults: b.opts.MaxResults,
			Order:      b.opts.Order,
		})
	}
}

// run loops until q or end of input and returns the encoded field value.
func (b *browser) run(ctx context.Context) (string, error) {
	if err := b.load(ctx); err != nil {
		return "", err
	}
	b.render()

	for {
		fmt.Fprint(b.out, "> ")
		if !b.in.Scan() {
			break
		}
		line := strings.TrimSpace(b.in.Text())
		if line == "q" {
			break
		}
		if err := b.exec(ctx, line); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			fmt.Fprintf(b.out, "error: %v\n", err)
		}
	}
	if err := b.in.Err(); err != nil {
		return "", err
	}
	return b.encode()
}

func (b *browser) exec(ctx context.Context, line string) error {
	cmd, arg, _ := strings.Cut(line, " ")
	switch {
	case line == "":
		return nil
	case strings.HasPrefix(line, "/"):
		b.search = strings.TrimSpace(line[1:])
		b.resetPager()
		if err := b.load(ctx); err != nil {
			return err
		}
		b.render()
	case cmd == "n", cmd == "p":
		ok, err := b.move(ctx, cmd == "n")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(b.out, "No more pages.")
			return nil
		}
		b.render()
	case cmd == "s":
		n, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			return errors.New("usage: s <row>")
		}
		return b.toggle(n)
	case cmd == "m":
		parts := strings.Fields(arg)
		if len(parts) != 2 {
			return errors.New("usage: m <from> <to>")
		}
		from, err1 := strconv.Atoi(parts[0])
		to, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return errors.New("usage: m <from> <to>")
		}
		if err := b.selection.Move(from-1, to-1); err != nil {
			return err
		}
		b.listSelection()
	case cmd == "c":
		b.selection.Clear()
		b.video, b.playlist = nil, nil
		fmt.Fprintln(b.out, "Selection cleared.")
	case cmd == "l":
		b.listSelection()
	case cmd == "h", cmd == "?":
		fmt.Fprintln(b.out, browseHelp)
	default:
		return fmt.Errorf("unknown command %q (h for help)", line)
	}
	return nil
}

func (b *browser) load(ctx context.Context) error {
	if b.playlists != nil {
		page, err := b.playlists.Current(ctx)
		if err != nil {
			return err
		}
		b.ppage = page
		return nil
	}
	page, err := b.videos.Current(ctx)
	if err != nil {
		return err
	}
	b.vpage = page
	return nil
}

func (b *browser) move(ctx context.Context, forward bool) (bool, error) {
	if b.playlists != nil {
		page, ok, err := step(ctx, b.playlists, forward)
		if err == nil {
			b.ppage = page
		}
		return ok, err
	}
	page, ok, err := step(ctx, b.videos, forward)
	if err == nil {
		b.vpage = page
	}
	return ok, err
}

func step[P any](ctx context.Context, p *youtube.Pager[P], forward bool) (P, bool, error) {
	if forward {
		return p.Next(ctx)
	}
	return p.Prev(ctx)
}

func (b *browser) toggle(row int) error {
	if b.playlists != nil {
		if b.ppage == nil || row < 1 || row > len(b.ppage.Playlists) {
			return fmt.Errorf("no row %d on this page", row)
		}
		p := b.ppage.Playlists[row-1]
		if b.playlist != nil && b.playlist.ID == p.ID {
			b.playlist = nil
			fmt.Fprintf(b.out, "Deselected %s.\n", p.ID)
			return nil
		}
		b.playlist = p
		fmt.Fprintf(b.out, "Selected %s.\n", p.ID)
		return nil
	}

	if b.vpage == nil || row < 1 || row > len(b.vpage.Videos) {
		return fmt.Errorf("no row %d on this page", row)
	}
	v := b.vpage.Videos[row-1]
	if b.opts.Kind == field.KindVideo {
		if b.video != nil && b.video.ID == v.ID {
			b.video = nil
			fmt.Fprintf(b.out, "Deselected %s.\n", v.ID)
			return nil
		}
		b.video = v
		fmt.Fprintf(b.out, "Selected %s.\n", v.ID)
		return nil
	}
	if b.selection.Toggle(v, b.now()) {
		fmt.Fprintf(b.out, "Selected %s (%d total).\n", v.ID, b.selection.Len())
	} else {
		fmt.Fprintf(b.out, "Deselected %s (%d total).\n", v.ID, b.selection.Len())
	}
	return nil
}

func (b *browser) selected(id string) bool {
	switch {
	case b.opts.Kind == field.KindVideo:
		return b.video != nil && b.video.ID == id
	case b.opts.Kind == field.KindPlaylist:
		return b.playlist != nil && b.playlist.ID == id
	}
	return b.selection.Has(id)
}

func (b *browser) render() {
	if b.playlists != nil {
		b.renderPlaylists()
		return
	}
	page := b.vpage
	fmt.Fprintf(b.out, "Page %d%s\n", b.videos.Cursor().Page(), b.searchSuffix())
	if page == nil || len(page.Videos) == 0 {
		fmt.Fprintln(b.out, "No videos found.")
		return
	}
	writeVideoTable(b.out, page.Videos, b.selected)
}

func (b *browser) renderPlaylists() {
	page := b.ppage
	fmt.Fprintf(b.out, "Page %d%s\n", b.playlists.Cursor().Page(), b.searchSuffix())
	if page == nil || len(page.Playlists) == 0 {
		fmt.Fprintln(b.out, "No playlists found.")
		return
	}
	w := tabwriter.NewWriter(b.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPLAYLIST ID\tTITLE\tVIDEOS")
	for i, p := range page.Playlists {
		var title string
		var count int64
		if p.Snippet != nil {
			title = p.Snippet.Title
		}
		if p.ContentDetails != nil {
			count = p.ContentDetails.ItemCount
		}
		mark := ""
		if b.selected(p.ID) {
			mark = "*"
		}
		fmt.Fprintf(w, "%d%s\t%s\t%s\t%d\n", i+1, mark, p.ID, truncate(title, 50), count)
	}
	w.Flush()
}

func (b *browser) searchSuffix() string {
	if b.search == "" {
		return ""
	}
	return fmt.Sprintf(" (search %q)", b.search)
}

func (b *browser) listSelection() {
	switch {
	case b.opts.Kind == field.KindVideo && b.video != nil:
		fmt.Fprintf(b.out, "Selected: %s\n", b.video.ID)
	case b.opts.Kind == field.KindPlaylist && b.playlist != nil:
		fmt.Fprintf(b.out, "Selected: %s\n", b.playlist.ID)
	case b.opts.Kind == field.KindVideos && b.selection.Len() > 0:
		for i, id := range b.selection.IDs() {
			fmt.Fprintf(b.out, "%d. %s\n", i+1, id)
		}
	default:
		fmt.Fprintln(b.out, "Nothing selected.")
	}
}

func (b *browser) encode() (string, error) {
	return field.Encode(b.opts.Kind, b.opts.Format, b.opts.Options, field.Picked{
		Video:    b.video,
		Videos:   b.selection.Entries(),
		Playlist: b.playlist,
	})
}
