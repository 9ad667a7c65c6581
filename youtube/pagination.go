package youtube

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidCursor is returned by DecodeCursor for malformed input.
var ErrInvalidCursor = errors.New("youtube: invalid cursor")

// Cursor remembers the page token of every visited page so a cursor-only
// upstream can be paged backwards. tokens[0] is always "" (first page).
type Cursor struct {
	tokens []string
	page   int
}

// NewCursor returns a cursor positioned on page 1.
func NewCursor() *Cursor {
	return &Cursor{tokens: []string{""}, page: 1}
}

// Page returns the current 1-based page number.
func (c *Cursor) Page() int {
	return c.page
}

// Token returns the page token for the current page.
func (c *Cursor) Token() string {
	return c.tokens[c.page-1]
}

// Advance moves to the page identified by next, the nextPageToken of the
// current page. The token is only recorded when the current page is the
// furthest one visited, so revisits never duplicate history. It returns
// false when there is no next page.
func (c *Cursor) Advance(next string) bool {
	if next == "" {
		return false
	}
	if c.page == len(c.tokens) {
		c.tokens = append(c.tokens, next)
	}
	c.page++
	return true
}

// Back moves to the previous page. It returns false on page 1.
func (c *Cursor) Back() bool {
	if c.page <= 1 {
		return false
	}
	c.page--
	return true
}

// Reset returns to page 1 and drops history. Call it whenever the search
// term, order or filter changes.
func (c *Cursor) Reset() {
	c.tokens = []string{""}
	c.page = 1
}

// HasPrev reports whether Back would succeed.
func (c *Cursor) HasPrev() bool {
	return c.page > 1
}

// HasNext reports whether the current page's nextPageToken allows Advance.
func (c *Cursor) HasNext(next string) bool {
	return next != ""
}

// Clone returns an independent copy of the cursor.
func (c *Cursor) Clone() *Cursor {
	return &Cursor{tokens: append([]string(nil), c.tokens...), page: c.page}
}

// Links returns the encoded cursors of the neighbouring pages, given next,
// the nextPageToken of the current page. Either is empty when there is no
// such page. c itself is not moved.
func (c *Cursor) Links(next string) (nextCursor, prevCursor string) {
	if fwd := c.Clone(); fwd.Advance(next) {
		nextCursor = fwd.Encode()
	}
	if back := c.Clone(); back.Back() {
		prevCursor = back.Encode()
	}
	return nextCursor, prevCursor
}

type cursorState struct {
	Tokens []string `json:"t"`
	Page   int      `json:"p"`
}

// Encode returns an opaque URL-safe form of the cursor.
func (c *Cursor) Encode() string {
	raw, _ := json.Marshal(cursorState{Tokens: c.tokens[1:], Page: c.page})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses the output of Encode. An empty string yields a new
// cursor.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return NewCursor(), nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var st cursorState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	tokens := append([]string{""}, st.Tokens...)
	if st.Page < 1 || st.Page > len(tokens) {
		return nil, fmt.Errorf("%w: page %d out of range", ErrInvalidCursor, st.Page)
	}
	for _, t := range st.Tokens {
		if t == "" {
			return nil, fmt.Errorf("%w: empty token in history", ErrInvalidCursor)
		}
	}
	return &Cursor{tokens: tokens, page: st.Page}, nil
}

// FetchFunc loads the page for a token and reports its next page token.
type FetchFunc[P any] func(ctx context.Context, pageToken string) (page P, next string, err error)

// Pager walks a paged query forwards and backwards with a Cursor.
type Pager[P any] struct {
	fetch  FetchFunc[P]
	cursor *Cursor

	current P
	next    string
	loaded  bool
}

// NewPager creates a pager positioned on page 1.
func NewPager[P any](fetch FetchFunc[P]) *Pager[P] {
	return &Pager[P]{fetch: fetch, cursor: NewCursor()}
}

// NewVideoPager pages through f.Videos for q.
func NewVideoPager(f *Finder, q VideoQuery) *Pager[*VideoPage] {
	return NewPager(func(ctx context.Context, token string) (*VideoPage, string, error) {
		q.PageToken = token
		p, err := f.Videos(ctx, q)
		if err != nil {
			return nil, "", err
		}
		return p, p.NextPageToken, nil
	})
}

// NewShortsPager pages through f.Shorts for q.
func NewShortsPager(f *Finder, q ShortsQuery) *Pager[*VideoPage] {
	return NewPager(func(ctx context.Context, token string) (*VideoPage, string, error) {
		q.PageToken = token
		p, err := f.Shorts(ctx, q)
		if err != nil {
			return nil, "", err
		}
		return p, p.NextPageToken, nil
	})
}

// NewPlaylistPager pages through f.Playlists for q.
func NewPlaylistPager(f *Finder, q PlaylistQuery) *Pager[*PlaylistPage] {
	return NewPager(func(ctx context.Context, token string) (*PlaylistPage, string, error) {
		q.PageToken = token
		p, err := f.Playlists(ctx, q)
		if err != nil {
			return nil, "", err
		}
		return p, p.NextPageToken, nil
	})
}

// Cursor exposes the pager's cursor.
func (p *Pager[P]) Cursor() *Cursor {
	return p.cursor
}

// Current loads (once) and returns the current page.
func (p *Pager[P]) Current(ctx context.Context) (P, error) {
	if p.loaded {
		return p.current, nil
	}
	return p.load(ctx)
}

// Next advances one page. ok is false when there is no next page; the
// current page is returned unchanged in that case.
func (p *Pager[P]) Next(ctx context.Context) (page P, ok bool, err error) {
	if _, err := p.Current(ctx); err != nil {
		return page, false, err
	}
	if !p.cursor.Advance(p.next) {
		return p.current, false, nil
	}
	page, err = p.load(ctx)
	if err != nil {
		p.cursor.Back()
		return page, false, err
	}
	return page, true, nil
}

// Prev goes back one page. ok is false on page 1.
func (p *Pager[P]) Prev(ctx context.Context) (page P, ok bool, err error) {
	if !p.cursor.Back() {
		page, err = p.Current(ctx)
		return page, false, err
	}
	page, err = p.load(ctx)
	return page, err == nil, err
}

// HasNext reports whether the loaded page has a successor.
func (p *Pager[P]) HasNext() bool {
	return p.loaded && p.cursor.HasNext(p.next)
}

// Reset returns to page 1 and discards history and the loaded page.
func (p *Pager[P]) Reset() {
	var zero P
	p.cursor.Reset()
	p.current = zero
	p.next = ""
	p.loaded = false
}

func (p *Pager[P]) load(ctx context.Context) (P, error) {
	page, next, err := p.fetch(ctx, p.cursor.Token())
	if err != nil {
		var zero P
		p.loaded = false
		return zero, err
	}
	p.current = page
	p.next = next
	p.loaded = true
	return page, nil
}
