package field

import (
	"bytes"
	"encoding/json"
	"fmt"

	"ytpicker/youtube"
)

// Picked is what an editor chose for a field, in the upstream shape. Only
// the member matching the field kind is used.
type Picked struct {
	Video    *youtube.Video    `json:"video,omitempty"`
	Videos   []SelectedVideo   `json:"videos,omitempty"`
	Playlist *youtube.Playlist `json:"playlist,omitempty"`
}

// Empty reports whether nothing was picked.
func (p Picked) Empty(kind Kind) bool {
	switch kind {
	case KindVideo:
		return p.Video == nil
	case KindVideos:
		return len(p.Videos) == 0
	case KindPlaylist:
		return p.Playlist == nil
	}
	return true
}

// Encode renders picked as a field value string. An empty pick encodes to "".
func Encode(kind Kind, format Format, opts Options, picked Picked) (string, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return "", err
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return "", err
	}
	if picked.Empty(kind) {
		return "", nil
	}

	var v any
	switch {
	case format == FormatLegacy && kind == KindVideo:
		v = picked.Video
	case format == FormatLegacy && kind == KindVideos:
		v = NewSelection(picked.Videos...).Entries()
	case format == FormatLegacy:
		v = picked.Playlist
	case kind == KindVideo:
		v = SimplifyVideo(picked.Video, opts, "")
	case kind == KindVideos:
		v = simplifyEntries(NewSelection(picked.Videos...).Entries(), opts)
	default:
		v = SimplifyPlaylist(picked.Playlist, opts)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("field: encode %s: %w", kind, err)
	}
	return string(raw), nil
}

func simplifyEntries(entries []SelectedVideo, opts Options) []SimplifiedVideo {
	out := make([]SimplifiedVideo, 0, len(entries))
	for _, e := range entries {
		out = append(out, SimplifyVideo(e.Video, opts, e.SelectedAt))
	}
	return out
}

// Value is a decoded field value in the simplified shape. Only the member
// matching Kind is set; all are empty for an empty field.
type Value struct {
	Kind     Kind                `json:"kind"`
	Format   Format              `json:"format"`
	Video    *SimplifiedVideo    `json:"video,omitempty"`
	Videos   []SimplifiedVideo   `json:"videos,omitempty"`
	Playlist *SimplifiedPlaylist `json:"playlist,omitempty"`
}

// Decode reads a stored value in either format and returns the simplified
// view. Format reports the shape the value was stored in.
func Decode(kind Kind, value string) (*Value, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	out := &Value{Kind: kind, Format: FormatSimplified}

	raw := bytes.TrimSpace([]byte(value))
	if len(raw) == 0 {
		return out, nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: not JSON", ErrMalformed)
	}
	if !IsSimplified(raw) {
		out.Format = FormatLegacy
	}

	opts := DefaultOptions()
	var err error
	switch {
	case kind == KindVideo && out.Format == FormatLegacy:
		var v youtube.Video
		if err = json.Unmarshal(raw, &v); err == nil {
			s := SimplifyVideo(&v, opts, "")
			out.Video = &s
		}
	case kind == KindVideo:
		err = json.Unmarshal(raw, &out.Video)
	case kind == KindVideos && out.Format == FormatLegacy:
		var entries []SelectedVideo
		if err = json.Unmarshal(raw, &entries); err == nil {
			out.Videos = simplifyEntries(NewSelection(entries...).Entries(), opts)
		}
	case kind == KindVideos:
		err = json.Unmarshal(raw, &out.Videos)
	case out.Format == FormatLegacy:
		var p youtube.Playlist
		if err = json.Unmarshal(raw, &p); err == nil {
			s := SimplifyPlaylist(&p, opts)
			out.Playlist = &s
		}
	default:
		err = json.Unmarshal(raw, &out.Playlist)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}

// DecodeSelection restores the multi-select state of a videos field stored
// in the legacy shape. Simplified values cannot be restored and yield an
// empty selection.
func DecodeSelection(value string) (*Selection, error) {
	raw := bytes.TrimSpace([]byte(value))
	if len(raw) == 0 || IsSimplified(raw) {
		return NewSelection(), nil
	}
	var entries []SelectedVideo
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return NewSelection(entries...), nil
}

// IsSimplified reports whether raw is in the simplified shape. Legacy
// objects carry a "snippet"; legacy arrays hold {video: {snippet}} entries.
// An empty array counts as simplified.
func IsSimplified(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return true
	}

	if raw[0] == '[' {
		var items []struct {
			Video *struct {
				Snippet json.RawMessage `json:"snippet"`
			} `json:"video"`
		}
		if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
			return true
		}
		return items[0].Video == nil || items[0].Video.Snippet == nil
	}

	var obj struct {
		Snippet json.RawMessage `json:"snippet"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return true
	}
	return obj.Snippet == nil
}
