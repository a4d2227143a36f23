package bookmarks

import "sync"

const (
	iconMarked    = "★"
	iconUnmarked  = "☆"
	labelMarked   = "Marked"
	labelUnmarked = "Mark"
)

// Button is one on-screen mark control bound to a rule id. The same id can
// be bound by several buttons at once.
type Button struct {
	ID     string
	marked bool
}

func (b *Button) Marked() bool { return b.marked }

func (b *Button) Icon() string {
	if b.marked {
		return iconMarked
	}
	return iconUnmarked
}

func (b *Button) Label() string {
	if b.marked {
		return labelMarked
	}
	return labelUnmarked
}

// String renders the button as "★ Marked" or "☆ Mark".
func (b *Button) String() string {
	return b.Icon() + " " + b.Label()
}

// Buttons tracks every bound button and keeps them in step with the store.
// It implements Listener.
type Buttons struct {
	mu   sync.Mutex
	byID map[string][]*Button
}

func NewButtons() *Buttons {
	return &Buttons{byID: make(map[string][]*Button)}
}

// Bind registers a new button for id.
func (r *Buttons) Bind(id string, marked bool) *Button {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := &Button{ID: id, marked: marked}
	r.byID[id] = append(r.byID[id], b)
	return b
}

// Sync sets every bound button from the persisted set.
func (r *Buttons) Sync(s *Store) {
	set := s.Load()
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, bs := range r.byID {
		_, ok := set[id]
		for _, b := range bs {
			b.marked = ok
		}
	}
}

// Unbind forgets every button, e.g. when the view that owned them closes.
func (r *Buttons) Unbind() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string][]*Button)
}

// Bound returns the buttons registered for id.
func (r *Buttons) Bound(id string) []*Button {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Button(nil), r.byID[id]...)
}

func (r *Buttons) BookmarkChanged(id string, marked bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.byID[id] {
		b.marked = marked
	}
}

func (r *Buttons) BookmarksCleared() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bs := range r.byID {
		for _, b := range bs {
			b.marked = false
		}
	}
}
