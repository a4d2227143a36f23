// Package bookmarks persists the rules a user has marked and keeps every
// on-screen mark button in step with the stored state.
package bookmarks

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

const (
	DefaultKey     = "rulecraft_bookmarks"
	DefaultProduct = "rulecraft"

	// TimeLayout matches Date.prototype.toISOString so files exported by the
	// web build round-trip unchanged.
	TimeLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Bookmark is one saved rule. The id is the key it is stored under.
type Bookmark struct {
	Title   string
	AddedAt time.Time

	// rawAddedAt holds a stored timestamp that does not parse. It is written
	// back unchanged so other clients keep their value.
	rawAddedAt string
}

// UnparsedAddedAt returns the stored timestamp when it could not be read.
func (b Bookmark) UnparsedAddedAt() string { return b.rawAddedAt }

type wireBookmark struct {
	Title   string `json:"title"`
	AddedAt string `json:"addedAt,omitempty"`
}

func (b Bookmark) MarshalJSON() ([]byte, error) {
	w := wireBookmark{Title: b.Title}
	switch {
	case !b.AddedAt.IsZero():
		w.AddedAt = b.AddedAt.UTC().Format(TimeLayout)
	case b.rawAddedAt != "":
		w.AddedAt = b.rawAddedAt
	}
	return json.Marshal(w)
}

func (b *Bookmark) UnmarshalJSON(data []byte) error {
	var w wireBookmark
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	b.Title = w.Title
	b.AddedAt = time.Time{}
	b.rawAddedAt = ""
	if w.AddedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, w.AddedAt)
		if err != nil {
			b.rawAddedAt = w.AddedAt
			return nil
		}
		b.AddedAt = t.UTC()
	}
	return nil
}

// Set maps rule id to bookmark.
type Set map[string]Bookmark

func (s Set) Clone() Set {
	out := make(Set, len(s))
	for id, b := range s {
		out[id] = b
	}
	return out
}

// Merge copies every entry of other into s, replacing entries that share an
// id, and returns s.
func (s Set) Merge(other Set) Set {
	for id, b := range other {
		s[id] = b
	}
	return s
}

// Entry is a Set element flattened for display.
type Entry struct {
	ID string
	Bookmark
}

// Entries lists the set ordered by title, then id.
func (s Set) Entries() []Entry {
	out := make([]Entry, 0, len(s))
	for id, b := range s {
		out = append(out, Entry{ID: id, Bookmark: b})
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := strings.ToLower(out[i].Title), strings.ToLower(out[j].Title)
		if ti != tj {
			return ti < tj
		}
		return out[i].ID < out[j].ID
	})
	return out
}
