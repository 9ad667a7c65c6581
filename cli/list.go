package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ytpicker/field"
	"ytpicker/youtube"
)

type listFlags struct {
	channel string
	search  string
	max     int
	order   string
	token   string
	asJSON  bool
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.channel, "channel", "", "Channel ID or /channel/ URL")
	cmd.Flags().StringVarP(&f.search, "search", "q", "", "Search term")
	cmd.Flags().IntVar(&f.max, "max", 0, "Results per page (1-50, default from config)")
	cmd.Flags().StringVar(&f.order, "order", "", "Order: date, rating, relevance, title, viewCount, videoCount")
	cmd.Flags().StringVar(&f.token, "page-token", "", "Page token from a previous call")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the raw page as JSON")
}

func (a *app) paging(f *listFlags) (limit int, order string) {
	limit, order = f.max, f.order
	if limit == 0 {
		limit = a.cfg.DefaultMaxResults
	}
	if order == "" {
		order = a.cfg.DefaultOrder
	}
	return limit, order
}

func newVideosCommand(a *app) *cobra.Command {
	flags := &listFlags{}
	var filter string
	cmd := &cobra.Command{
		Use:   "videos",
		Short: "List one page of videos",
		RunE: func(cmd *cobra.Command, _ []string) error {
			channel, err := a.channelFlag(flags.channel)
			if err != nil {
				return err
			}
			f, err := a.finder(cmd)
			if err != nil {
				return err
			}
			limit, order := a.paging(flags)
			page, err := f.Videos(cmd.Context(), youtube.VideoQuery{
				ChannelID:  channel,
				Search:     flags.search,
				PageToken:  flags.token,
				MaxResults: limit,
				Order:      order,
				Filter:     youtube.ContentFilter(filter),
			})
			if err != nil {
				return err
			}
			return printVideoPage(cmd.OutOrStdout(), cmd.ErrOrStderr(), page, flags.asJSON)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&filter, "filter", "all", "Content filter: all, videos, shorts")
	return cmd
}

func newShortsCommand(a *app) *cobra.Command {
	flags := &listFlags{}
	cmd := &cobra.Command{
		Use:   "shorts",
		Short: "List one page of Shorts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			channel, err := a.channelFlag(flags.channel)
			if err != nil {
				return err
			}
			f, err := a.finder(cmd)
			if err != nil {
				return err
			}
			limit, order := a.paging(flags)
			page, err := f.Shorts(cmd.Context(), youtube.ShortsQuery{
				ChannelID:  channel,
				Search:     flags.search,
				PageToken:  flags.token,
				MaxResults: limit,
				Order:      order,
			})
			if err != nil {
				return err
			}
			return printVideoPage(cmd.OutOrStdout(), cmd.ErrOrStderr(), page, flags.asJSON)
		},
	}
	flags.register(cmd)
	return cmd
}

func newPlaylistsCommand(a *app) *cobra.Command {
	flags := &listFlags{}
	cmd := &cobra.Command{
		Use:   "playlists",
		Short: "List one page of playlists",
		RunE: func(cmd *cobra.Command, _ []string) error {
			channel, err := a.channelFlag(flags.channel)
			if err != nil {
				return err
			}
			f, err := a.finder(cmd)
			if err != nil {
				return err
			}
			limit, order := a.paging(flags)
			page, err := f.Playlists(cmd.Context(), youtube.PlaylistQuery{
				ChannelID:  channel,
				Search:     flags.search,
				PageToken:  flags.token,
				MaxResults: limit,
				Order:      order,
			})
			if err != nil {
				return err
			}
			return printPlaylistPage(cmd.OutOrStdout(), cmd.ErrOrStderr(), page, flags.asJSON)
		},
	}
	flags.register(cmd)
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printVideoPage(out, errOut io.Writer, page *youtube.VideoPage, asJSON bool) error {
	if asJSON {
		return printJSON(out, page)
	}
	if len(page.Videos) == 0 {
		fmt.Fprintln(out, "No videos found.")
		return nil
	}
	writeVideoTable(out, page.Videos, nil)
	printTokens(errOut, len(page.Videos), page.PageInfo, page.NextPageToken, page.PrevPageToken)
	return nil
}

// writeVideoTable prints one row per video. Rows of selected videos are
// marked with "*" when selected is non-nil.
func writeVideoTable(out io.Writer, videos []*youtube.Video, selected func(id string) bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tVIDEO ID\tTITLE\tDURATION\tVIEWS\tTYPE")
	for i, v := range videos {
		var title, duration, views string
		if v.Snippet != nil {
			title = v.Snippet.Title
		}
		if v.ContentDetails != nil {
			duration = field.FormatDuration(v.ContentDetails.Duration)
		}
		if v.Statistics != nil {
			views = field.FormatCount(v.Statistics.ViewCount)
		}
		kind := "video"
		if v.IsShort {
			kind = "short"
		}
		mark := ""
		if selected != nil && selected(v.ID) {
			mark = "*"
		}
		fmt.Fprintf(w, "%d%s\t%s\t%s\t%s\t%s\t%s\n", i+1, mark, v.ID, truncate(title, 50), duration, views, kind)
	}
	w.Flush()
}

func printPlaylistPage(out, errOut io.Writer, page *youtube.PlaylistPage, asJSON bool) error {
	if asJSON {
		return printJSON(out, page)
	}
	if len(page.Playlists) == 0 {
		fmt.Fprintln(out, "No playlists found.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLAYLIST ID\tTITLE\tVIDEOS")
	for _, p := range page.Playlists {
		var title string
		var count int64
		if p.Snippet != nil {
			title = p.Snippet.Title
		}
		if p.ContentDetails != nil {
			count = p.ContentDetails.ItemCount
		}
		fmt.Fprintf(w, "%s\t%s\t%d\n", p.ID, truncate(title, 50), count)
	}
	w.Flush()
	printTokens(errOut, len(page.Playlists), page.PageInfo, page.NextPageToken, page.PrevPageToken)
	return nil
}

func printTokens(w io.Writer, n int, pi *youtube.PageInfo, next, prev string) {
	total := int64(n)
	if pi != nil {
		total = pi.TotalResults
	}
	fmt.Fprintf(w, "\nShowing %d of about %d", n, total)
	if next != "" {
		fmt.Fprintf(w, ", next page: --page-token %s", next)
	}
	if prev != "" {
		fmt.Fprintf(w, ", previous page: --page-token %s", prev)
	}
	fmt.Fprintln(w)
}
