// Package ytpicker is the backend of a YouTube picker for CMS field types.
//
// It lets editors browse a channel's videos, Shorts and playlists through
// the YouTube Data API v3 and stores what they picked as field values.
//
// Overview
//
// The work is split across sub-packages:
//
//   - youtube: Data API client, Shorts classification, paging and URL parsing
//   - field: field value encoding in the simplified and legacy formats
//   - storage: persistent field values (JSON file or SQLite)
//   - server: the HTTP API used by the picker modals
//   - config: configuration management
//
// Quick Start
//
// List the first page of a channel's videos with Shorts flagged:
//
//	ctx := context.Background()
//	client, err := youtube.NewClient(ctx, apiKey, youtube.DefaultOptions())
//	if err != nil {
//		log.Fatal(err)
//	}
//	finder := youtube.NewFinder(client, nil)
//	page, err := finder.Videos(ctx, youtube.VideoQuery{ChannelID: "UCxxxxx"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, v := range page.Videos {
//		fmt.Println(v.ID, v.Snippet.Title, v.IsShort)
//	}
//
// Encode a pick as a field value:
//
//	value, err := field.Encode(field.KindVideo, field.FormatSimplified,
//		field.DefaultOptions(), field.Picked{Video: page.Videos[0]})
//
// Configuration
//
// ytpicker loads settings from multiple sources:
//
//  1. Environment variables (highest priority)
//  2. Config file (ytpicker.json or ~/.config/ytpicker/ytpicker.json)
//  3. Default values (lowest priority)
//
// Every key can be overridden with a YTPICKER_ prefixed variable, e.g.
// YTPICKER_API_KEY, YTPICKER_SHORTS_STRATEGY or YTPICKER_STORE_BACKEND.
//
// Error Handling
//
// Checking for sentinel errors:
//
//	if errors.Is(err, ytpicker.ErrQuotaExceeded) {
//		fmt.Println("Daily quota used up")
//	}
//
// Extracting upstream error details:
//
//	var apiErr *ytpicker.APIError
//	if errors.As(err, &apiErr) {
//		fmt.Printf("%s failed with %d (%s)\n", apiErr.Op, apiErr.Status, apiErr.Reason)
//	}
package ytpicker
