package field

import (
	"fmt"
	"time"

	"ytpicker/youtube"
)

// SelectedAtLayout matches the millisecond UTC timestamps stored with each
// multi-video entry, e.g. "2024-05-01T08:00:00.000Z".
const SelectedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// SelectedVideo is one entry of a multi-video field in the legacy shape.
type SelectedVideo struct {
	Video      *youtube.Video `json:"video"`
	SelectedAt string         `json:"selectedAt"`
}

// Selection is an insertion-ordered set of picked videos.
type Selection struct {
	entries []SelectedVideo
}

// NewSelection starts a selection from existing entries, dropping
// duplicates and entries without a video.
func NewSelection(entries ...SelectedVideo) *Selection {
	s := &Selection{}
	for _, e := range entries {
		if e.Video == nil || s.Has(e.Video.ID) {
			continue
		}
		s.entries = append(s.entries, e)
	}
	return s
}

// Has reports whether the video is selected.
func (s *Selection) Has(id string) bool {
	return s.index(id) >= 0
}

func (s *Selection) index(id string) int {
	for i, e := range s.entries {
		if e.Video.ID == id {
			return i
		}
	}
	return -1
}

// Add appends v stamped with at. It returns false if v was already selected.
func (s *Selection) Add(v *youtube.Video, at time.Time) bool {
	if v == nil || s.Has(v.ID) {
		return false
	}
	s.entries = append(s.entries, SelectedVideo{
		Video:      v,
		SelectedAt: at.UTC().Format(SelectedAtLayout),
	})
	return true
}

// Remove drops the video. It returns false if it was not selected.
func (s *Selection) Remove(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return true
}

// Toggle selects v if absent and deselects it otherwise. It returns whether
// v is selected afterwards.
func (s *Selection) Toggle(v *youtube.Video, at time.Time) bool {
	if s.Remove(v.ID) {
		return false
	}
	return s.Add(v, at)
}

// Move repositions the entry at from to index to.
func (s *Selection) Move(from, to int) error {
	n := len(s.entries)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("field: move %d -> %d out of range [0,%d)", from, to, n)
	}
	e := s.entries[from]
	s.entries = append(s.entries[:from], s.entries[from+1:]...)
	s.entries = append(s.entries[:to], append([]SelectedVideo{e}, s.entries[to:]...)...)
	return nil
}

// Clear deselects everything.
func (s *Selection) Clear() {
	s.entries = nil
}

// Len returns the number of selected videos.
func (s *Selection) Len() int {
	return len(s.entries)
}

// IDs returns the selected video IDs in order.
func (s *Selection) IDs() []string {
	ids := make([]string, len(s.entries))
	for i, e := range s.entries {
		ids[i] = e.Video.ID
	}
	return ids
}

// Entries returns a copy of the entries in order.
func (s *Selection) Entries() []SelectedVideo {
	return append([]SelectedVideo(nil), s.entries...)
}
