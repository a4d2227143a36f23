// Package autocomplete drives the suggestion dropdown attached to one search
// input: debounced lookups, highlighted rows, wraparound keyboard
// navigation and dismissal. It is a bubbletea component; timers and
// requests run as tea.Cmds and report back through Update.
package autocomplete

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/jeanpaul/rulecraft/internal/highlight"
	"github.com/jeanpaul/rulecraft/internal/routes"
	"github.com/jeanpaul/rulecraft/internal/suggest"
)

// State is the dropdown state of one input.
type State int

const (
	Idle State = iota
	Pending
	Open
	Navigating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Open:
		return "open"
	case Navigating:
		return "navigating"
	}
	return "unknown"
}

type Options struct {
	Debounce    time.Duration
	MinQueryLen int
	BlurGrace   time.Duration
	Logger      *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		Debounce:    150 * time.Millisecond,
		MinQueryLen: 2,
		BlurGrace:   200 * time.Millisecond,
	}
}

// Row is one rendered suggestion with the query highlighted.
type Row struct {
	Suggestion suggest.Suggestion
	Title      []highlight.Segment
	Excerpt    []highlight.Segment
}

// NavigateMsg asks the host to leave for Path, a site path such as
// /rules/<id> or /search?q=<query>.
type NavigateMsg struct {
	From string
	Path string
}

type debounceMsg struct {
	id    string
	tag   int
	query string
}

type resultsMsg struct {
	id    string
	seq   uint64
	query string
	items []suggest.Suggestion
	err   error
}

type blurMsg struct {
	id  string
	tag int
}

// Controller holds the state of one input. All methods must be called from
// the bubbletea Update goroutine.
type Controller struct {
	id   string
	src  suggest.Source
	opts Options
	log  *slog.Logger
	ctx  context.Context
	stop context.CancelFunc

	query     string
	shown     string
	rows      []Row
	noResults bool
	focus     int
	waiting   bool
	inflight  bool

	debounceTag int
	blurTag     int
	seq         uint64
	cancel      context.CancelFunc
}

func New(src suggest.Source, opts Options) *Controller {
	def := DefaultOptions()
	if opts.Debounce <= 0 {
		opts.Debounce = def.Debounce
	}
	if opts.MinQueryLen <= 0 {
		opts.MinQueryLen = def.MinQueryLen
	}
	if opts.BlurGrace <= 0 {
		opts.BlurGrace = def.BlurGrace
	}
	id := uuid.NewString()
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Controller{
		id:    id,
		src:   src,
		opts:  opts,
		log:   log.With("input", id),
		ctx:   ctx,
		stop:  stop,
		focus: -1,
	}
}

func (c *Controller) ID() string { return c.id }

func (c *Controller) State() State {
	switch {
	case c.waiting || c.inflight:
		return Pending
	case c.focus >= 0:
		return Navigating
	case c.Visible():
		return Open
	}
	return Idle
}

// Visible reports whether the dropdown has anything to draw.
func (c *Controller) Visible() bool { return len(c.rows) > 0 || c.noResults }

func (c *Controller) Rows() []Row { return c.rows }

// NoResults reports whether the dropdown shows the empty placeholder.
func (c *Controller) NoResults() bool { return c.noResults }

// Focus is the highlighted row, -1 for none.
func (c *Controller) Focus() int { return c.focus }

// Query is the trimmed text of the last Input call.
func (c *Controller) Query() string { return c.query }

// ShownQuery is the query the visible rows were fetched for.
func (c *Controller) ShownQuery() string { return c.shown }

// ViewAllPath links to the full results page for the shown rows.
func (c *Controller) ViewAllPath() string { return routes.Search(c.shown) }

// Input records the current input text and (re)starts the debounce timer.
// Queries shorter than MinQueryLen close the dropdown without a request.
func (c *Controller) Input(value string) tea.Cmd {
	q := strings.TrimSpace(value)
	c.query = q
	c.debounceTag++

	if utf8.RuneCountInString(q) < c.opts.MinQueryLen {
		c.close()
		return nil
	}

	c.waiting = true
	id, tag := c.id, c.debounceTag
	return tea.Tick(c.opts.Debounce, func(time.Time) tea.Msg {
		return debounceMsg{id: id, tag: tag, query: q}
	})
}

// Update consumes the controller's own timer and response messages and
// ignores everything else.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case debounceMsg:
		if msg.id != c.id || msg.tag != c.debounceTag {
			return nil
		}
		c.waiting = false
		return c.request(msg.query)

	case resultsMsg:
		if msg.id != c.id {
			return nil
		}
		if msg.seq != c.seq {
			c.log.Debug("dropping stale suggestions", "query", msg.query)
			return nil
		}
		c.release()
		c.inflight = false
		if msg.err != nil {
			if !errors.Is(msg.err, context.Canceled) {
				c.log.Error("search error", "query", msg.query, "err", msg.err)
			}
			c.close()
			return nil
		}
		c.show(msg.query, msg.items)

	case blurMsg:
		if msg.id == c.id && msg.tag == c.blurTag {
			c.close()
		}
	}
	return nil
}

func (c *Controller) request(q string) tea.Cmd {
	c.release()
	c.seq++
	c.inflight = true
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancel = cancel

	id, seq, src := c.id, c.seq, c.src
	return func() tea.Msg {
		items, err := src.Suggest(ctx, q)
		return resultsMsg{id: id, seq: seq, query: q, items: items, err: err}
	}
}

func (c *Controller) show(q string, items []suggest.Suggestion) {
	c.shown = q
	c.focus = -1
	c.rows = make([]Row, 0, len(items))
	for _, s := range items {
		c.rows = append(c.rows, Row{
			Suggestion: s,
			Title:      highlight.Segments(s.Title, q),
			Excerpt:    highlight.Segments(s.Excerpt, q),
		})
	}
	c.noResults = len(items) == 0
}

// KeyDown moves the highlight one row down, wrapping to the first row.
func (c *Controller) KeyDown() { c.move(1) }

// KeyUp moves the highlight one row up, wrapping to the last row.
func (c *Controller) KeyUp() { c.move(-1) }

func (c *Controller) move(delta int) {
	n := len(c.rows)
	if n == 0 {
		return
	}
	c.focus += delta
	if c.focus >= n {
		c.focus = 0
	}
	if c.focus < 0 {
		c.focus = n - 1
	}
}

// Hover highlights row i; mouse and keyboard share the index.
func (c *Controller) Hover(i int) {
	if i >= 0 && i < len(c.rows) {
		c.focus = i
	}
}

// Enter activates the highlighted row. With no highlight it submits the
// query to the full results page. It returns nil when there is nothing to
// activate.
func (c *Controller) Enter() tea.Cmd {
	if c.focus >= 0 && c.focus < len(c.rows) {
		return c.Click(c.focus)
	}
	if utf8.RuneCountInString(c.query) >= c.opts.MinQueryLen {
		path := routes.Search(c.query)
		c.close()
		return c.navigate(path)
	}
	return nil
}

// Click leaves for the detail page of row i.
func (c *Controller) Click(i int) tea.Cmd {
	if i < 0 || i >= len(c.rows) {
		return nil
	}
	path := routes.Rule(c.rows[i].Suggestion.ID)
	c.close()
	return c.navigate(path)
}

// ClickViewAll leaves for the full results page.
func (c *Controller) ClickViewAll() tea.Cmd {
	if len(c.rows) == 0 {
		return nil
	}
	path := c.ViewAllPath()
	c.close()
	return c.navigate(path)
}

func (c *Controller) Escape() { c.close() }

func (c *Controller) ClickOutside() { c.close() }

// Blur closes the dropdown after the grace delay so a click on a row can
// land first.
func (c *Controller) Blur() tea.Cmd {
	c.blurTag++
	id, tag := c.id, c.blurTag
	return tea.Tick(c.opts.BlurGrace, func(time.Time) tea.Msg {
		return blurMsg{id: id, tag: tag}
	})
}

// Refocus cancels a pending blur.
func (c *Controller) Refocus() { c.blurTag++ }

// Shutdown cancels any in-flight request for good.
func (c *Controller) Shutdown() {
	c.close()
	c.stop()
}

func (c *Controller) navigate(path string) tea.Cmd {
	from := c.id
	return func() tea.Msg { return NavigateMsg{From: from, Path: path} }
}

func (c *Controller) close() {
	c.debounceTag++
	c.seq++
	c.release()
	c.waiting = false
	c.inflight = false
	c.rows = nil
	c.noResults = false
	c.focus = -1
}

func (c *Controller) release() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
