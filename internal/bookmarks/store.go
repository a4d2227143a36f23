package bookmarks

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jeanpaul/rulecraft/internal/kv"
)

// ErrInvalidImport wraps every reason an import file is rejected.
var ErrInvalidImport = errors.New("invalid bookmark file")

// Listener is told about every successful mutation.
type Listener interface {
	BookmarkChanged(id string, marked bool)
	BookmarksCleared()
}

// Store reads and writes the bookmark set as one JSON blob under a single
// key. Every mutation rewrites the whole blob.
type Store struct {
	mu        sync.Mutex
	kv        kv.Store
	key       string
	product   string
	now       func() time.Time
	log       *slog.Logger
	listeners []Listener
}

type Option func(*Store)

func WithKey(key string) Option { return func(s *Store) { s.key = key } }

func WithProduct(name string) Option { return func(s *Store) { s.product = name } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.log = l } }

func WithListener(l Listener) Option {
	return func(s *Store) { s.listeners = append(s.listeners, l) }
}

func New(store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:      store,
		key:     DefaultKey,
		product: DefaultProduct,
		now:     time.Now,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe adds a listener after construction. The returned func removes
// it again and may be called more than once.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
	return func() { s.unsubscribe(l) }
}

func (s *Store) unsubscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.listeners {
		if cur == l {
			s.listeners = slices.Delete(s.listeners, i, i+1)
			return
		}
	}
}

// Listeners reports how many listeners are subscribed.
func (s *Store) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// Load returns the persisted set. A missing or unreadable blob yields an
// empty set; the failure is logged.
func (s *Store) Load() Set {
	raw, err := s.kv.Get(s.key)
	if errors.Is(err, kv.ErrNotFound) {
		return Set{}
	}
	if err != nil {
		s.log.Error("reading bookmarks", "key", s.key, "err", err)
		return Set{}
	}

	var set Set
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		s.log.Error("decoding bookmarks", "key", s.key, "err", err)
		return Set{}
	}
	if set == nil {
		return Set{}
	}
	for id, b := range set {
		if raw := b.UnparsedAddedAt(); raw != "" {
			s.log.Warn("keeping bookmark with unreadable addedAt", "key", s.key, "id", id, "addedAt", raw)
		}
	}
	return set
}

// Save persists set. On failure the previous blob stays in place and the
// error is only logged.
func (s *Store) Save(set Set) {
	if err := s.save(set); err != nil {
		s.log.Error("saving bookmarks", "key", s.key, "err", err)
	}
}

func (s *Store) save(set Set) error {
	if set == nil {
		set = Set{}
	}
	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal bookmarks: %w", err)
	}
	return s.kv.Set(s.key, string(raw))
}

// Update applies fn to a copy of the persisted set and writes the result
// back while holding the store lock. fn must not call back into the Store.
func (s *Store) Update(fn func(Set) Set) (Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := fn(s.Load().Clone())
	if next == nil {
		next = Set{}
	}
	if err := s.save(next); err != nil {
		s.log.Error("saving bookmarks", "key", s.key, "err", err)
		return nil, err
	}
	return next, nil
}

// Entries lists the persisted set for display.
func (s *Store) Entries() []Entry { return s.Load().Entries() }

func (s *Store) IsMarked(id string) bool {
	_, ok := s.Load()[id]
	return ok
}

// Toggle removes id if it is marked and marks it otherwise. It returns the
// persisted membership after the call.
func (s *Store) Toggle(id, title string) bool {
	var marked bool
	_, err := s.Update(func(set Set) Set {
		if _, ok := set[id]; ok {
			delete(set, id)
			marked = false
		} else {
			set[id] = Bookmark{Title: title, AddedAt: s.timestamp()}
			marked = true
		}
		return set
	})
	if err != nil {
		return s.IsMarked(id)
	}
	s.notifyChanged(id, marked)
	return marked
}

func (s *Store) Remove(id string) {
	_, err := s.Update(func(set Set) Set {
		delete(set, id)
		return set
	})
	if err != nil {
		return
	}
	s.notifyChanged(id, false)
}

// Clear drops every bookmark. Callers confirm with the user first.
func (s *Store) Clear() {
	if _, err := s.Update(func(Set) Set { return Set{} }); err != nil {
		return
	}
	for _, l := range s.snapshotListeners() {
		l.BookmarksCleared()
	}
}

// Export returns the whole set as indented JSON.
func (s *Store) Export() ([]byte, error) {
	data, err := json.MarshalIndent(s.Load(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return data, nil
}

// ExportFileName is the name offered for exported files.
func (s *Store) ExportFileName() string {
	return s.product + "-bookmarks.json"
}

// Import merges the bookmarks read from r into the store, imported entries
// replacing existing ones with the same id. A file that fails to parse is
// rejected as a whole with an error wrapping ErrInvalidImport.
func (s *Store) Import(r io.Reader) (int, error) {
	imported, err := s.parseImport(r)
	if err != nil {
		return 0, err
	}
	if _, err := s.Update(func(set Set) Set { return set.Merge(imported) }); err != nil {
		return 0, fmt.Errorf("saving imported bookmarks: %w", err)
	}
	for id := range imported {
		s.notifyChanged(id, true)
	}
	s.log.Info("imported bookmarks", "count", len(imported))
	return len(imported), nil
}

func (s *Store) parseImport(r io.Reader) (Set, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrInvalidImport, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: not UTF-8 text", ErrInvalidImport)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidImport)
	}
	if err := validateImport(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	now := s.timestamp()
	for id, b := range set {
		if b.AddedAt.IsZero() {
			b.AddedAt = now
			set[id] = b
		}
	}
	return set, nil
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *Store) snapshotListeners() []Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Listener(nil), s.listeners...)
}

func (s *Store) notifyChanged(id string, marked bool) {
	for _, l := range s.snapshotListeners() {
		l.BookmarkChanged(id, marked)
	}
}
